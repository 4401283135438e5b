package remote

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

var (
	ErrNotConnected = errors.New("remote session is not connected")
)

// Session is an SSH connection with an SFTP subsystem opened on top of it.
// Close is idempotent and safe on a nil or partially opened session.
type Session struct {
	logger logrus.FieldLogger

	ssh  *ssh.Client
	sftp *sftp.Client
}

func NewSession(logger logrus.FieldLogger, sshClient *ssh.Client, sftpClient *sftp.Client) *Session {
	return &Session{
		logger: logger,
		ssh:    sshClient,
		sftp:   sftpClient,
	}
}

func (s *Session) ListDirectory(ctx context.Context, dir string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	infos, err := s.sftp.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list %s", dir)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}

	return names, nil
}

func (s *Session) StatModifiedTime(ctx context.Context, p string) (time.Time, error) {
	if err := s.ready(ctx); err != nil {
		return time.Time{}, err
	}

	info, err := s.sftp.Stat(p)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "unable to stat %s", p)
	}

	return info.ModTime(), nil
}

func (s *Session) Remove(ctx context.Context, p string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	return errors.Wrapf(s.sftp.Remove(p), "unable to remove %s", p)
}

// RunCommand runs cmd in a new SSH session and returns its stdout split into
// lines. A non-zero exit status is tolerated when the command still printed
// something: df exits with 1 when any single filesystem is unreadable.
func (s *Session) RunCommand(ctx context.Context, cmd string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.ssh == nil {
		return nil, ErrNotConnected
	}

	session, err := s.ssh.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "unable to open ssh session")
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout

	if err := session.Run(cmd); err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) || stdout.Len() == 0 {
			return nil, errors.Wrapf(err, "unable to run '%s'", cmd)
		}

		s.logger.WithFields(logrus.Fields{
			"command":     cmd,
			"exit_status": exitErr.ExitStatus(),
		}).Warn("Command exited with non-zero status, using its output")
	}

	return splitLines(stdout.Bytes()), nil
}

// Upload copies localPath to remotePath. A partially written remote file is
// removed when the copy fails.
func (s *Session) Upload(ctx context.Context, localPath, remotePath string) (err error) {
	if err := s.ready(ctx); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", localPath)
	}
	defer src.Close()

	dst, err := s.sftp.Create(remotePath)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", remotePath)
	}

	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "unable to close %s", remotePath)
		}

		if err != nil {
			if rerr := s.sftp.Remove(remotePath); rerr != nil {
				s.logger.WithError(rerr).WithField("file", remotePath).Warn("Unable to remove partially uploaded file")
			}
		}
	}()

	n, err := io.Copy(dst, src)
	if err != nil {
		return errors.Wrapf(err, "unable to upload %s", localPath)
	}

	s.logger.WithFields(logrus.Fields{"file": remotePath, "bytes": n}).Debug("Upload finished")

	return nil
}

func (s *Session) Close() error {
	if s == nil {
		return nil
	}

	var result error

	if s.sftp != nil {
		if err := s.sftp.Close(); err != nil {
			result = errors.Wrap(err, "unable to close sftp session")
		} else {
			s.logger.Debug("SFTP session closed")
		}
		s.sftp = nil
	}

	if s.ssh != nil {
		if err := s.ssh.Close(); err != nil && result == nil {
			result = errors.Wrap(err, "unable to close ssh connection")
		} else if err == nil {
			s.logger.Debug("SSH connection closed")
		}
		s.ssh = nil
	}

	return result
}

func (s *Session) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sftp == nil {
		return ErrNotConnected
	}
	return nil
}

func splitLines(out []byte) []string {
	var lines []string

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	return lines
}
