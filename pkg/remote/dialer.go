package remote

import (
	"context"
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	"github.com/yurykabanov/sftp-backuper/pkg/domain"
)

type Config struct {
	Host           string
	Port           int
	Username       string
	KeyPath        string
	KeyPassphrase  string
	KnownHostsPath string
	Timeout        time.Duration
}

func ConfigFromSettings(s domain.Settings) Config {
	return Config{
		Host:           s.Host,
		Port:           s.Port,
		Username:       s.Username,
		KeyPath:        s.KeyPath,
		KeyPassphrase:  s.KeyPassphrase,
		KnownHostsPath: s.KnownHostsPath,
		Timeout:        s.ConnectTimeout,
	}
}

// PassphrasePrompt asks the operator for the passphrase of an encrypted key.
type PassphrasePrompt func(keyPath string) ([]byte, error)

// Dialer opens authenticated SSH+SFTP sessions.
type Dialer struct {
	logger logrus.FieldLogger
	config Config
	prompt PassphrasePrompt
}

func NewDialer(logger logrus.FieldLogger, config Config, prompt PassphrasePrompt) *Dialer {
	return &Dialer{
		logger: logger,
		config: config,
		prompt: prompt,
	}
}

func (d *Dialer) Dial(ctx context.Context) (domain.RemoteSession, error) {
	clientConfig, err := d.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(d.config.Host, strconv.Itoa(d.config.Port))

	netDialer := net.Dialer{Timeout: d.config.Timeout}
	conn, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to reach %s", addr)
	}

	if d.config.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.config.Timeout))
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "ssh handshake with %s failed", addr)
	}

	// The deadline only guards the handshake
	_ = conn.SetDeadline(time.Time{})

	sshClient := ssh.NewClient(c, chans, reqs)
	d.logger.WithFields(logrus.Fields{"host": d.config.Host, "username": d.config.Username}).Debug("SSH connection opened")

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, errors.Wrap(err, "unable to open sftp subsystem")
	}
	d.logger.Debug("SFTP session opened")

	return NewSession(d.logger, sshClient, sftpClient), nil
}

func (d *Dialer) clientConfig() (*ssh.ClientConfig, error) {
	signer, err := d.signer()
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            d.config.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.config.Timeout,
	}, nil
}

func (d *Dialer) signer() (ssh.Signer, error) {
	pem, err := ioutil.ReadFile(d.config.KeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read private key %s", d.config.KeyPath)
	}

	signer, err := ssh.ParsePrivateKey(pem)
	if err == nil {
		return signer, nil
	}

	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, errors.Wrapf(err, "unable to parse private key %s", d.config.KeyPath)
	}

	passphrase := []byte(d.config.KeyPassphrase)
	if len(passphrase) == 0 {
		if d.prompt == nil {
			return nil, errors.Errorf("private key %s is encrypted and no passphrase is configured", d.config.KeyPath)
		}

		passphrase, err = d.prompt(d.config.KeyPath)
		if err != nil {
			return nil, errors.Wrap(err, "unable to read key passphrase")
		}
	}

	signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, passphrase)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decrypt private key %s", d.config.KeyPath)
	}

	return signer, nil
}

func (d *Dialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.config.KnownHostsPath == "" {
		d.logger.WithField("host", d.config.Host).Warn("No known_hosts file configured, accepting any host key")
		return ssh.InsecureIgnoreHostKey(), nil
	}

	callback, err := knownhosts.New(d.config.KnownHostsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load known hosts %s", d.config.KnownHostsPath)
	}

	return callback, nil
}

// TerminalPrompt reads a passphrase from the controlling terminal without
// echoing it. It fails when stdin is not a terminal.
func TerminalPrompt(keyPath string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Passphrase for %s: ", keyPath)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	return passphrase, err
}
