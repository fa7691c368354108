// Command epshell is an interactive shell for the instruments of a bench file.
//
//	epshell --bench bench.yaml
//	epshell » open psu
//	epshell » query psu *IDN?
//	epshell » metrics
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertbit/grumble"

	"github.com/electric-propulsion/go-epcomms/bench"
	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/scpi"
	"github.com/electric-propulsion/go-epcomms/visa"
)

var (
	log = logger.GetLogger()
	b   *bench.Bench
)

func main() {
	app := setupCLI()
	addCommands(app)

	if err := app.Run(); err != nil {
		log.Fatal("epshell failed", "error", err)
	}
}

func setupCLI() *grumble.App {
	histFile := ".epshell_history"
	if home, err := os.UserHomeDir(); err == nil {
		histFile = filepath.Join(home, histFile)
	}

	app := grumble.New(&grumble.Config{
		Name:        "epshell",
		Description: "interactive shell for bench instruments",
		HistoryFile: histFile,
		Flags: func(f *grumble.Flags) {
			f.String("b", "bench", "bench.yaml", "bench file (.yaml, .yml or .toml)")
			f.String("l", "log-level", "info", "log level: debug, info, warn or error")
		},
	})

	app.OnInit(func(a *grumble.App, flags grumble.FlagMap) error {
		logger.SetLevel(logger.ParseLevel(flags.String("log-level")))

		cfg, err := bench.Load(flags.String("bench"))
		if err != nil {
			return fmt.Errorf("load bench: %w", err)
		}
		b = bench.New(cfg, nil, log)

		return nil
	})

	app.OnClose(func() error {
		if b == nil {
			return nil
		}

		return b.Close()
	})

	return app
}

// opContext bounds one shell command.
func opContext(c *grumble.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.Flags.Duration("timeout"))
}

func timeoutFlag(f *grumble.Flags) {
	f.Duration("t", "timeout", 10*time.Second, "timeout of the operation")
}

func addCommands(app *grumble.App) {
	app.AddCommand(&grumble.Command{
		Name:    "instruments",
		Aliases: []string{"ls"},
		Help:    "list the instruments of the bench file",
		Run: func(c *grumble.Context) error {
			c.App.Println(renderInstruments(b))
			return nil
		},
	})

	app.AddCommand(&grumble.Command{
		Name: "resources",
		Help: "list VISA resources matching an expression",
		Args: func(a *grumble.Args) {
			a.String("query", "resource expression", grumble.Default(visa.ListAll))
		},
		Run: func(c *grumble.Context) error {
			names, err := b.Resources(c.Args.String("query"))
			if err != nil {
				return err
			}
			c.App.Println(renderList("Resource", names))
			return nil
		},
	})

	app.AddCommand(&grumble.Command{
		Name: "ports",
		Help: "list serial ports",
		Run: func(c *grumble.Context) error {
			ports, err := b.Ports()
			if err != nil {
				return err
			}
			c.App.Println(renderList("Port", ports))
			return nil
		},
	})

	app.AddCommand(&grumble.Command{
		Name:  "open",
		Help:  "open an instrument session",
		Flags: timeoutFlag,
		Args: func(a *grumble.Args) {
			a.String("name", "instrument name")
		},
		Run: func(c *grumble.Context) error {
			ctx, cancel := opContext(c)
			defer cancel()

			name := c.Args.String("name")
			if _, err := b.Open(ctx, name); err != nil {
				return err
			}
			log.Info("instrument opened", "name", name)
			return nil
		},
	})

	app.AddCommand(&grumble.Command{
		Name: "close",
		Help: "close an instrument session",
		Args: func(a *grumble.Args) {
			a.String("name", "instrument name")
		},
		Run: func(c *grumble.Context) error {
			return b.CloseSession(c.Args.String("name"))
		},
	})

	app.AddCommand(&grumble.Command{
		Name:  "write",
		Help:  "send a command to an instrument",
		Flags: timeoutFlag,
		Args: func(a *grumble.Args) {
			a.String("name", "instrument name")
			a.StringList("text", "command text")
		},
		Run: func(c *grumble.Context) error {
			ctx, cancel := opContext(c)
			defer cancel()

			s, err := b.Open(ctx, c.Args.String("name"))
			if err != nil {
				return err
			}
			return s.Write(ctx, strings.Join(c.Args.StringList("text"), " "))
		},
	})

	app.AddCommand(&grumble.Command{
		Name:  "read",
		Help:  "read one response from an instrument",
		Flags: timeoutFlag,
		Args: func(a *grumble.Args) {
			a.String("name", "instrument name")
		},
		Run: func(c *grumble.Context) error {
			ctx, cancel := opContext(c)
			defer cancel()

			s, err := b.Open(ctx, c.Args.String("name"))
			if err != nil {
				return err
			}
			resp, err := s.Read(ctx)
			if err != nil {
				return err
			}
			c.App.Println(resp)
			return nil
		},
	})

	app.AddCommand(&grumble.Command{
		Name:    "query",
		Aliases: []string{"poll"},
		Help:    "send a query and print the response",
		Flags:   timeoutFlag,
		Args: func(a *grumble.Args) {
			a.String("name", "instrument name")
			a.StringList("text", "query text")
		},
		Run: func(c *grumble.Context) error {
			ctx, cancel := opContext(c)
			defer cancel()

			s, err := b.Open(ctx, c.Args.String("name"))
			if err != nil {
				return err
			}
			resp, err := s.Query(ctx, strings.Join(c.Args.StringList("text"), " "))
			if err != nil {
				return err
			}
			c.App.Println(resp)
			return nil
		},
	})

	app.AddCommand(&grumble.Command{
		Name:  "errors",
		Help:  "drain the SCPI error queue of an instrument",
		Flags: timeoutFlag,
		Args: func(a *grumble.Args) {
			a.String("name", "instrument name")
		},
		Run: func(c *grumble.Context) error {
			ctx, cancel := opContext(c)
			defer cancel()

			s, err := b.Open(ctx, c.Args.String("name"))
			if err != nil {
				return err
			}
			errs, err := scpi.Errors(ctx, s)
			if len(errs) == 0 && err == nil {
				c.App.Println("no errors")
				return nil
			}
			c.App.Println(renderList("Error", errs))
			return err
		},
	})

	app.AddCommand(&grumble.Command{
		Name: "metrics",
		Help: "show counters of the open sessions",
		Run: func(c *grumble.Context) error {
			c.App.Println(renderMetrics(b.Sessions()))
			return nil
		},
	})
}
