package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/validate"
	"golang.org/x/term"
)

var errUsage = errors.New("invalid arguments")

type command struct {
	summary string
	// session commands resume the stored session before running.
	session bool
	run     func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"register":     {summary: "create an account", run: cmdRegister},
	"verify":       {summary: "confirm a new account with the mailed code", run: cmdVerify},
	"login":        {summary: "sign in and keep the credential", session: true, run: cmdLogin},
	"logout":       {summary: "sign out and forget the credential", session: true, run: cmdLogout},
	"whoami":       {summary: "show the session and profile", session: true, run: cmdWhoami},
	"search":       {summary: "list users", session: true, run: cmdSearch},
	"set-email":    {summary: "change an email address", session: true, run: cmdSetEmail},
	"verify-email": {summary: "confirm an email change with the mailed code", run: cmdVerifyEmail},
	"passwd":       {summary: "change a password", session: true, run: cmdPasswd},
	"roles":        {summary: "list assignable roles", session: true, run: cmdRoles},
	"set-role":     {summary: "assign a role (admin)", session: true, run: cmdSetRole},
	"delete":       {summary: "delete an account", session: true, run: cmdDelete},
}

var commandOrder = []string{
	"register", "verify", "login", "logout", "whoami", "search",
	"set-email", "verify-email", "passwd", "roles", "set-role", "delete",
}

type cli struct {
	engine *goAuthClient.Engine
	stdin  io.Reader
	lines  *bufio.Reader
	out    io.Writer
	errOut io.Writer
	tr     *validate.Translator
}

func newCLI(engine *goAuthClient.Engine, stdin io.Reader, stdout, stderr io.Writer) *cli {
	return &cli{
		engine: engine,
		stdin:  stdin,
		lines:  bufio.NewReader(stdin),
		out:    stdout,
		errOut: stderr,
		tr:     validate.NewTranslator(os.Getenv("LANG")),
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *cli) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// secret reads a line without echo when stdin is a terminal.
func (c *cli) secret(prompt string) (string, error) {
	fmt.Fprint(c.errOut, prompt)
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.errOut)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := c.lines.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printError(err error) {
	var fields *goAuthClient.InvalidFieldsError
	if errors.As(err, &fields) {
		translated := c.tr.TranslateAll(fields.Fields)
		names := make([]string, 0, len(translated))
		for name := range translated {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(c.errOut, "%s: %s\n", name, strings.Join(translated[name], "; "))
		}
		return
	}
	if errors.Is(err, goAuthClient.ErrNotAuthenticated) {
		fmt.Fprintln(c.errOut, "not logged in; run accountctl login")
		return
	}
	fmt.Fprintln(c.errOut, err)
}

// target returns the -id flag value, or the session user when it is 0.
func (c *cli) target(id int64) (int64, error) {
	if id != 0 {
		return id, nil
	}
	self, ok := c.engine.CurrentUserID()
	if !ok {
		return 0, goAuthClient.ErrNotAuthenticated
	}
	return self, nil
}

func cmdRegister(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("register")
	var in api.Registration
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.Name, "name", "", "full name")
	fs.StringVar(&in.Postcode, "postcode", "", "postcode")
	fs.StringVar(&in.City, "city", "", "city")
	fs.StringVar(&in.Phone, "phone", "", "phone number")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	var err error
	if in.Password, err = c.secret("Password: "); err != nil {
		return err
	}
	repeat, err := c.secret("Repeat password: ")
	if err != nil {
		return err
	}
	if keys := validate.Fields(&in.Password).Check(validate.FieldPasswordRepeat, repeat); len(keys) > 0 {
		return api.NewInvalidFieldsError(map[string][]string{validate.FieldPasswordRepeat: keys})
	}

	if err := c.engine.Register(ctx, in); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "registered; confirm the account with accountctl verify")
	return nil
}

func codeCommand(name string, verify func(*goAuthClient.Engine) func(context.Context, int64, int) error) func(context.Context, *cli, []string) error {
	return func(ctx context.Context, c *cli, args []string) error {
		fs := c.flags(name)
		id := fs.Int64("id", 0, "user id")
		code := fs.Int("code", 0, "code from the mail")
		if err := c.parse(fs, args); err != nil {
			return err
		}
		if *id == 0 {
			return fmt.Errorf("%w: -id is required", errUsage)
		}
		if err := verify(c.engine)(ctx, *id, *code); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "confirmed")
		return nil
	}
}

var (
	cmdVerify      = codeCommand("verify", func(e *goAuthClient.Engine) func(context.Context, int64, int) error { return e.VerifyUser })
	cmdVerifyEmail = codeCommand("verify-email", func(e *goAuthClient.Engine) func(context.Context, int64, int) error { return e.VerifyEmailChange })
)

func cmdLogin(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "email address")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if c.engine.IsAuthenticated() {
		return goAuthClient.ErrAlreadyAuthenticated
	}
	password, err := c.secret("Password: ")
	if err != nil {
		return err
	}
	if err := c.engine.Login(ctx, *email, password); err != nil {
		return err
	}
	id, _ := c.engine.CurrentUserID()
	fmt.Fprintf(c.out, "logged in as user %d\n", id)
	return nil
}

func cmdLogout(ctx context.Context, c *cli, args []string) error {
	if err := c.parse(c.flags("logout"), args); err != nil {
		return err
	}
	if err := c.engine.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "logged out")
	return nil
}

func cmdWhoami(ctx context.Context, c *cli, args []string) error {
	if err := c.parse(c.flags("whoami"), args); err != nil {
		return err
	}
	out := struct {
		Session goAuthClient.Status `json:"session"`
		Profile *api.User           `json:"profile,omitempty"`
	}{Session: c.engine.Status()}
	if out.Session.Authenticated {
		p, err := c.engine.Profile(ctx)
		if err != nil {
			return err
		}
		out.Profile = p
	}
	return c.printJSON(out)
}

func cmdSearch(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("search")
	var q api.SearchQuery
	fs.StringVar(&q.Name, "name", "", "name filter")
	fs.StringVar(&q.Postcode, "postcode", "", "postcode filter")
	fs.StringVar(&q.City, "city", "", "city filter")
	fs.StringVar(&q.Phone, "phone", "", "phone filter")
	fs.StringVar(&q.Email, "email", "", "email filter")
	fs.StringVar(&q.Page, "page", api.PageSizes[0], "page size ("+strings.Join(api.PageSizes, ", ")+")")
	fs.StringVar(&q.Index, "index", "0", "page index")
	fs.StringVar(&q.SortBy, "sort", "email", "sort column ("+strings.Join(api.SortColumns, ", ")+")")
	desc := fs.Bool("desc", false, "sort descending")
	count := fs.Bool("count", false, "print only the number of matches")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if *desc {
		q.Order = api.OrderDescending
	}

	if *count {
		n, err := c.engine.SearchCount(ctx, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, n)
		return nil
	}
	users, err := c.engine.Search(ctx, q)
	if err != nil {
		return err
	}
	return c.printJSON(users)
}

func cmdSetEmail(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("set-email")
	id := fs.Int64("id", 0, "user id (default: yourself)")
	email := fs.String("email", "", "new email address")
	privileged := fs.Bool("privileged", false, "change without verification (admin)")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	target, err := c.target(*id)
	if err != nil {
		return err
	}
	if *privileged {
		if err := c.engine.UpdateEmailPrivileged(ctx, target, *email); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "email changed")
		return nil
	}
	if err := c.engine.UpdateEmail(ctx, target, *email); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "confirm the change with accountctl verify-email")
	return nil
}

func cmdPasswd(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("passwd")
	id := fs.Int64("id", 0, "user id (default: yourself)")
	privileged := fs.Bool("privileged", false, "set without the old password (admin)")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	target, err := c.target(*id)
	if err != nil {
		return err
	}

	var old string
	if !*privileged {
		if old, err = c.secret("Current password: "); err != nil {
			return err
		}
	}
	next, err := c.secret("New password: ")
	if err != nil {
		return err
	}
	repeat, err := c.secret("Repeat new password: ")
	if err != nil {
		return err
	}

	if *privileged {
		err = c.engine.UpdatePasswordPrivileged(ctx, target, next, repeat)
	} else {
		err = c.engine.UpdatePassword(ctx, target, old, next, repeat)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "password changed")
	return nil
}

func cmdRoles(ctx context.Context, c *cli, args []string) error {
	if err := c.parse(c.flags("roles"), args); err != nil {
		return err
	}
	roles, err := c.engine.Roles(ctx)
	if err != nil {
		return err
	}
	for _, r := range roles {
		fmt.Fprintln(c.out, r)
	}
	return nil
}

func cmdSetRole(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("set-role")
	id := fs.Int64("id", 0, "user id")
	role := fs.String("role", "", "role name")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if *id == 0 || *role == "" {
		return fmt.Errorf("%w: -id and -role are required", errUsage)
	}
	if _, err := c.engine.Roles(ctx); err != nil {
		return err
	}
	if err := c.engine.UpdateRole(ctx, *id, *role); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "user %d is now %s\n", *id, *role)
	return nil
}

func cmdDelete(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("delete")
	id := fs.Int64("id", 0, "user id (default: yourself)")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	target, err := c.target(*id)
	if err != nil {
		return err
	}
	if err := c.engine.DeleteUser(ctx, target); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "user %d deleted\n", target)
	return nil
}
