package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/tokenpb"
)

// API is the subset of client.GRPCClient used by the commands.
type API interface {
	Login(ctx context.Context, email string, password []byte) (tokenpb.Pair, error)
	Refresh(ctx context.Context) (tokenpb.Pair, error)
	WhoAmI(ctx context.Context) (client.Identity, error)
	SetTokens(access, refresh string)
	Tokens() (access, refresh string)
	Close() error
}

var errUsage = errors.New("usage: authctl [-a addr] [-t seconds] login [email] | refresh <refresh-token> | whoami <access-token> [refresh-token]")

type App struct {
	config *config.Config
	api    API
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewAuthKeeperClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	return &App{config: c, api: apiClient, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

// Run executes the command in args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	defer a.api.Close()

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	var err error
	if len(args) == 0 {
		err = errUsage
	} else {
		switch args[0] {
		case "login":
			err = a.login(ctx, args[1:])
		case "refresh":
			err = a.refresh(ctx, args[1:])
		case "whoami":
			err = a.whoami(ctx, args[1:])
		default:
			err = errUsage
		}
	}

	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func (a *App) login(ctx context.Context, args []string) error {
	var email string
	switch len(args) {
	case 0:
		var err error
		if email, err = promptLine(a.reader, a.out, "Email"); err != nil {
			return err
		}
	case 1:
		email = args[0]
	default:
		return errUsage
	}

	password, err := promptPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pair, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.printPair(pair)
	return nil
}

func (a *App) refresh(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	a.api.SetTokens("", args[0])

	pair, err := a.api.Refresh(ctx)
	if err != nil {
		return err
	}
	a.printPair(pair)
	return nil
}

func (a *App) whoami(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	refresh := ""
	if len(args) == 2 {
		refresh = args[1]
	}
	a.api.SetTokens(args[0], refresh)

	id, err := a.api.WhoAmI(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "user id: %s\nemail:   %s\n", id.UserID, id.Email)

	if access, newRefresh := a.api.Tokens(); access != args[0] {
		fmt.Fprintln(a.out, "access token expired; the pair was refreshed:")
		fmt.Fprintf(a.out, "access token:  %s\nrefresh token: %s\n", access, newRefresh)
	}
	return nil
}

func (a *App) printPair(p tokenpb.Pair) {
	fmt.Fprintf(a.out, "access token:  %s\nrefresh token: %s\n", p.AccessToken, p.RefreshToken)
	if !p.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "expires at:    %s\n", p.ExpiresAt.Local().Format(time.RFC3339))
	}
}
