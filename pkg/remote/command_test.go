package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type commandResult struct {
	stdout string
	status uint32
}

// newCommandSession connects to an in-memory SSH server that answers every
// exec request with result.
func newCommandSession(t *testing.T, result commandResult) (*Session, <-chan string) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	hostKey, err := ssh.NewSignerFromKey(key)
	require.NoError(t, err)

	serverConfig := &ssh.ServerConfig{NoClientAuth: true}
	serverConfig.AddHostKey(hostKey)

	serverConn, clientConn := net.Pipe()
	commands := make(chan string, 1)

	go serveCommands(serverConn, serverConfig, result, commands)

	c, chans, reqs, err := ssh.NewClientConn(clientConn, "pipe", &ssh.ClientConfig{
		User:            "backup",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	require.NoError(t, err)

	s := NewSession(discardLogger(), ssh.NewClient(c, chans, reqs), nil)
	t.Cleanup(func() { _ = s.Close() })

	return s, commands
}

func serveCommands(nc net.Conn, config *ssh.ServerConfig, result commandResult, commands chan<- string) {
	conn, chans, reqs, err := ssh.NewServerConn(nc, config)
	if err != nil {
		return
	}
	defer conn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "only sessions are served")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			return
		}

		go func() {
			defer channel.Close()

			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}

				var payload struct{ Command string }
				_ = ssh.Unmarshal(req.Payload, &payload)
				_ = req.Reply(true, nil)
				commands <- payload.Command

				_, _ = io.WriteString(channel, result.stdout)
				_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{result.status}))
				return
			}
		}()
	}
}

func TestSession_RunCommand(t *testing.T) {
	s, commands := newCommandSession(t, commandResult{
		stdout: "Filesystem 1024-blocks Used Available Capacity Mounted on\n/dev/sda1 100 40 60 40% /\n",
	})

	lines, err := s.RunCommand(context.Background(), "df -Pk")

	require.NoError(t, err)
	assert.Equal(t, "df -Pk", <-commands)
	assert.Equal(t, []string{
		"Filesystem 1024-blocks Used Available Capacity Mounted on",
		"/dev/sda1 100 40 60 40% /",
	}, lines)
}

func TestSession_RunCommand_NonZeroExitWithOutput(t *testing.T) {
	s, _ := newCommandSession(t, commandResult{
		stdout: "Filesystem 1024-blocks Used Available Capacity Mounted on\n/dev/sda1 100 40 60 40% /\n",
		status: 1,
	})

	lines, err := s.RunCommand(context.Background(), "df -Pk")

	require.NoError(t, err)
	assert.Equal(t, "/dev/sda1 100 40 60 40% /", lines[len(lines)-1])
}

func TestSession_RunCommand_NonZeroExitWithoutOutput(t *testing.T) {
	s, _ := newCommandSession(t, commandResult{status: 127})

	_, err := s.RunCommand(context.Background(), "no-such-command")

	var exitErr *ssh.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 127, exitErr.ExitStatus())
}
