package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/logger"
)

// SSHGateway reaches devices over SSH with password authentication.
// Every call dials its own connection and tears it down on return.
type SSHGateway struct {
	logger logger.Logger
}

// NewSSHGateway creates a gateway that logs through log
func NewSSHGateway(log logger.Logger) *SSHGateway {
	if log == nil {
		log = logger.NewNop()
	}
	return &SSHGateway{logger: log}
}

// Execute runs a single read command on the device
func (g *SSHGateway) Execute(ctx context.Context, params ConnectionParams, command string) (string, error) {
	timeout := params.CommandTimeout
	if timeout == 0 {
		timeout = params.SessionTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client, err := g.dial(ctx, params)
	if err != nil {
		return "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", neterrors.Wrap(neterrors.ErrorTypeTransport, "session", err)
	}
	defer session.Close()

	// session calls have no context support; closing the client
	// unblocks them when the context fires
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-done:
		}
	}()

	g.logger.WithFields(map[string]interface{}{
		"host":    params.Host,
		"command": command,
	}).Debug("executing command")

	out, err := session.CombinedOutput(command)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", neterrors.Wrap(neterrors.ErrorTypeTransport, "execute", err)
	}

	return string(out), nil
}

// PushConfig applies a configuration through an interactive shell and
// persists it with the platform's save command
func (g *SSHGateway) PushConfig(ctx context.Context, params ConnectionParams, configText string) (*PushResult, error) {
	if params.SessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.SessionTimeout)
		defer cancel()
	}

	client, err := g.dial(ctx, params)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "session", err)
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("vt100", 0, 200, modes); err != nil {
		return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "pty", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "push", err)
	}

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	if err := session.Shell(); err != nil {
		return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "shell", err)
	}

	commands := configSession(params.DeviceType, configText)
	g.logger.WithFields(map[string]interface{}{
		"host":  params.Host,
		"lines": len(commands),
	}).Debug("pushing configuration")

	for _, cmd := range commands {
		if _, err := fmt.Fprintln(stdin, cmd); err != nil {
			return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "push", err)
		}
	}
	fmt.Fprintln(stdin, "exit")
	stdin.Close()

	waitErr := make(chan error, 1)
	go func() { waitErr <- session.Wait() }()

	select {
	case err := <-waitErr:
		if err != nil {
			// devices often drop the channel after "exit" without an
			// exit status; that is a clean finish
			var missing *ssh.ExitMissingError
			if !errors.As(err, &missing) {
				return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "push", err)
			}
		}
	case <-ctx.Done():
		client.Close()
		return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "push", ctx.Err())
	}

	return &PushResult{
		LinesApplied: len(ConfigLines(configText)),
		Output:       output.String(),
	}, nil
}

// dial opens and authenticates an SSH connection. The socket deadline
// bounds the handshake (including the pre-auth banner) and is cleared
// once the connection is established.
func (g *SSHGateway) dial(ctx context.Context, params ConnectionParams) (*ssh.Client, error) {
	cfg := &ssh.ClientConfig{
		User: params.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(params.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = params.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		BannerCallback: func(string) error {
			g.logger.WithField("host", params.Host).Debug("ssh banner received")
			return nil
		},
		Timeout: params.AuthTimeout,
	}

	dialer := net.Dialer{Timeout: params.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", params.Addr())
	if err != nil {
		return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "connect", err)
	}

	handshakeBudget := params.AuthTimeout + params.BannerTimeout
	if handshakeBudget > 0 {
		_ = conn.SetDeadline(time.Now().Add(handshakeBudget))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, params.Addr(), cfg)
	if err != nil {
		conn.Close()
		return nil, neterrors.Wrap(neterrors.ErrorTypeTransport, "connect", err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}
