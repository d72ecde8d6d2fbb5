// Command demostf is a small CLI over the demos.tf API: list and
// inspect demos, dump chat transcripts, and download demo files with
// hash verification.
//
// Configuration is read from DEMOSTF_* environment variables, with an
// optional .env file in the working directory.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	demostf "github.com/demostf/go-client"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	logLevel := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	app := &cli.App{
		Name:  "demostf",
		Usage: "browse and download demos.tf replays",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logLevel.Set(slog.LevelDebug)
			}
			return nil
		},
		Commands: []*cli.Command{
			listCommand(logger),
			getCommand(logger),
			chatCommand(logger),
			downloadCommand(logger),
			uploadCommand(logger),
		},
	}

	return app.Run(os.Args)
}

func newClient(logger *slog.Logger) (*demostf.Client, error) {
	return demostf.FromEnv(demostf.WithLogger(logger))
}

func listCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list demos, newest first",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "page", Value: 1, Usage: "1-indexed result page"},
			&cli.StringFlag{Name: "map", Usage: "filter by map name"},
			&cli.StringFlag{Name: "type", Usage: "filter by game type (hl, prolander, 6v6, 4v4)"},
			&cli.Uint64Flag{Name: "uploader", Usage: "filter by uploader steamid64"},
			&cli.Uint64SliceFlag{Name: "player", Usage: "filter by player steamid64, repeatable"},
			&cli.BoolFlag{Name: "asc", Usage: "oldest first"},
		},
		Action: func(c *cli.Context) error {
			client, err := newClient(logger)
			if err != nil {
				return err
			}

			params := demostf.ListParams{}
			if c.Bool("asc") {
				params = params.WithOrder(demostf.Ascending)
			}
			if mapName := c.String("map"); mapName != "" {
				params = params.WithMap(mapName)
			}
			if gameType := c.String("type"); gameType != "" {
				params = params.WithType(demostf.GameType(gameType))
			}
			if ids := c.Uint64Slice("player"); len(ids) > 0 {
				players := make([]demostf.SteamID, len(ids))
				for i, id := range ids {
					players[i] = demostf.SteamID(id)
				}
				params = params.WithPlayers(players...)
			}

			page := uint32(c.Uint("page"))

			var demos []demostf.Demo
			if uploader := c.Uint64("uploader"); uploader != 0 {
				demos, err = client.ListUploads(c.Context, demostf.SteamID(uploader), params, page)
			} else {
				demos, err = client.List(c.Context, params, page)
			}
			if err != nil {
				return err
			}

			for _, demo := range demos {
				fmt.Printf("%d\t%s\t%s\t%s vs %s\t%d:%d\n",
					demo.ID, demo.Time.Format(time.DateOnly), demo.Map,
					demo.Red, demo.Blue, demo.RedScore, demo.BlueScore)
			}

			return nil
		},
	}
}

func getCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "show a single demo with its players",
		ArgsUsage: "<demo id>",
		Action: func(c *cli.Context) error {
			id, err := demoID(c)
			if err != nil {
				return err
			}

			client, err := newClient(logger)
			if err != nil {
				return err
			}

			demo, err := client.Get(c.Context, id)
			if err != nil {
				return err
			}

			fmt.Printf("%d: %s\n", demo.ID, demo.Name)
			fmt.Printf("map: %s, server: %s, duration: %ds\n", demo.Map, demo.Server, demo.Duration)
			fmt.Printf("%s %d - %d %s\n", demo.Red, demo.RedScore, demo.BlueScore, demo.Blue)
			for _, player := range demo.Players {
				fmt.Printf("  [%s] %-20s %-12s %d/%d/%d\n",
					player.Team, player.User.Name, player.Class,
					player.Kills, player.Assists, player.Deaths)
			}

			return nil
		},
	}
}

func chatCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "dump a demo's chat transcript",
		ArgsUsage: "<demo id>",
		Action: func(c *cli.Context) error {
			id, err := demoID(c)
			if err != nil {
				return err
			}

			client, err := newClient(logger)
			if err != nil {
				return err
			}

			chat, err := client.GetChat(c.Context, id)
			if err != nil {
				return err
			}

			for _, message := range chat {
				fmt.Printf("[%4d] %s: %s\n", message.Time, message.User, message.Message)
			}

			return nil
		},
	}
}

func downloadCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "download a demo file, verifying its hash",
		ArgsUsage: "<demo id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file, defaults to the demo name"},
		},
		Action: func(c *cli.Context) error {
			id, err := demoID(c)
			if err != nil {
				return err
			}

			client, err := newClient(logger)
			if err != nil {
				return err
			}

			demo, err := client.Get(c.Context, id)
			if err != nil {
				return err
			}

			dest := c.String("output")
			if dest == "" {
				dest = demo.Name
			}

			file, err := os.Create(dest)
			if err != nil {
				return fmt.Errorf("creating %s: %w", dest, err)
			}

			if err := demo.Save(c.Context, client, file); err != nil {
				file.Close()
				return err
			}

			logger.Info("saved demo", "id", demo.ID, "path", dest, "hash", demo.Hash)

			return file.Close()
		},
	}
}

func uploadCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "upload a demo file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "red", Value: "RED", Usage: "red team name"},
			&cli.StringFlag{Name: "blue", Value: "BLU", Usage: "blue team name"},
			&cli.StringFlag{Name: "key", Required: true, Usage: "upload api key"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one file argument")
			}
			path := c.Args().First()

			body, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			client, err := newClient(logger)
			if err != nil {
				return err
			}

			id, err := client.Upload(c.Context, filepath.Base(path), body, c.String("red"), c.String("blue"), c.String("key"))
			if err != nil {
				return err
			}

			fmt.Println(id)

			return nil
		},
	}
}

func demoID(c *cli.Context) (uint32, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one demo id argument")
	}

	id, err := strconv.ParseUint(c.Args().First(), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid demo id %q", c.Args().First())
	}

	return uint32(id), nil
}
