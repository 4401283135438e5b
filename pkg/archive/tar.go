package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/sftp-backuper/pkg/domain"
)

const partialSuffix = ".partial"

// TarGzArchiver packs source directories into a gzip-compressed tar file.
// Entries keep the absolute source path without the leading slash, like tar
// does.
type TarGzArchiver struct {
	logger logrus.FieldLogger
	level  int
}

func New(logger logrus.FieldLogger, level int) *TarGzArchiver {
	if level == 0 {
		level = gzip.DefaultCompression
	}

	return &TarGzArchiver{
		logger: logger,
		level:  level,
	}
}

// Build writes the archive next to destination under a temporary name and
// renames it only when every source was archived. Nothing is left behind on
// failure.
func (a *TarGzArchiver) Build(ctx context.Context, sources []string, destination string) (domain.ArchiveJob, error) {
	partial := destination + partialSuffix

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return domain.ArchiveJob{}, domain.NewArchiveError(destination, errors.Wrap(err, "unable to create output directory"))
	}

	if err := a.write(ctx, sources, partial); err != nil {
		_ = os.Remove(partial)
		return domain.ArchiveJob{}, domain.NewArchiveError(destination, err)
	}

	if err := os.Rename(partial, destination); err != nil {
		_ = os.Remove(partial)
		return domain.ArchiveJob{}, domain.NewArchiveError(destination, errors.Wrap(err, "unable to finalize archive"))
	}

	info, err := os.Stat(destination)
	if err != nil {
		return domain.ArchiveJob{}, domain.NewArchiveError(destination, err)
	}

	return domain.ArchiveJob{
		Filename:  filepath.Base(destination),
		LocalPath: destination,
		SizeBytes: info.Size(),
	}, nil
}

func (a *TarGzArchiver) write(ctx context.Context, sources []string, outfile string) (err error) {
	f, err := os.OpenFile(outfile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return errors.Wrap(err, "unable to create archive file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "unable to close archive file")
		}
	}()

	gw, err := gzip.NewWriterLevel(f, a.level)
	if err != nil {
		return errors.Wrap(err, "unable to create gzip writer")
	}

	tw := tar.NewWriter(gw)

	skip, err := filepath.Abs(outfile)
	if err != nil {
		return err
	}

	for _, source := range sources {
		// Relative sources would otherwise produce "../" entry names
		abs, err := filepath.Abs(source)
		if err != nil {
			return errors.Wrapf(err, "unable to resolve source %s", source)
		}
		source = abs

		if _, err := os.Lstat(source); err != nil {
			return errors.Wrapf(err, "source %s is not readable", source)
		}

		a.logger.WithField("source", source).Info("Adding source to archive")

		if err := a.addFiles(ctx, tw, source, skip); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "unable to finish tar stream")
	}

	if err := gw.Close(); err != nil {
		return errors.Wrap(err, "unable to finish gzip stream")
	}

	return f.Sync()
}

func (a *TarGzArchiver) addFiles(ctx context.Context, tw *tar.Writer, source, skip string) error {
	return filepath.Walk(source, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrapf(err, "unable to read %s", p)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if abs, err := filepath.Abs(p); err == nil && abs == skip {
			return nil
		}

		var link string
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			link, err = os.Readlink(p)
			if err != nil {
				return errors.Wrapf(err, "unable to read symlink %s", p)
			}
		case info.Mode()&(os.ModeSocket|os.ModeNamedPipe) != 0:
			a.logger.WithField("file", p).Warn("Skipping special file")
			return nil
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return errors.Wrapf(err, "unable to create header for %s", p)
		}

		header.Name = archiveName(p, info.IsDir())
		header.Format = tar.FormatPAX

		if err := tw.WriteHeader(header); err != nil {
			return errors.Wrapf(err, "unable to write header for %s", p)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		return copyFile(tw, p)
	})
}

func copyFile(w io.Writer, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", p)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return errors.Wrapf(err, "unable to archive %s", p)
	}

	return nil
}

func archiveName(p string, dir bool) string {
	name := strings.TrimLeft(filepath.ToSlash(p), "/")

	if dir && !strings.HasSuffix(name, "/") {
		name += "/"
	}

	return name
}
