package main

import (
	"fmt"
	"log"
	"os"

	"github.com/glizzus/radio-relay/internal/blocklist"
	"github.com/glizzus/radio-relay/internal/catalog"
	"github.com/glizzus/radio-relay/internal/config"
	"github.com/glizzus/radio-relay/internal/datalayer"
	"github.com/glizzus/radio-relay/internal/repository"
	"github.com/urfave/cli/v2"
)

func withRepository(action func(*cli.Context, *repository.PostgresStreamRepository) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.NewPostgresConfigFromEnv()
		if err != nil {
			return cli.Exit("Failed to load postgres config: "+err.Error(), 1)
		}
		if !cfg.Enabled() {
			return cli.Exit("POSTGRES_HOST is not set", 1)
		}

		pool, err := datalayer.NewPostgresPool(c.Context, cfg.DSN())
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer pool.Close()

		if err := datalayer.MigratePostgres(pool); err != nil {
			return cli.Exit("Failed to migrate postgres: "+err.Error(), 1)
		}
		return action(c, repository.NewPostgresStreamRepository(pool))
	}
}

func withBlocklist(action func(*cli.Context, *blocklist.RedisBlocklist) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.NewRedisConfigFromEnv()
		if err != nil {
			return cli.Exit("Failed to load redis config: "+err.Error(), 1)
		}
		if !cfg.Enabled() {
			return cli.Exit("REDIS_ADDR is not set", 1)
		}

		client, err := datalayer.NewRedisClient(c.Context, cfg.Addr, cfg.Password)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer client.Close()

		return action(c, blocklist.NewRedisBlocklist(client))
	}
}

func requireArg(c *cli.Context, name string) (string, error) {
	value := c.Args().First()
	if value == "" {
		return "", cli.Exit(fmt.Sprintf("Please provide the %s as an argument", name), 1)
	}
	return value, nil
}

var streamsCommand = &cli.Command{
	Name:  "streams",
	Usage: "Manage the station catalog stored in Postgres",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List the stored stations in panel order",
			Action: withRepository(func(c *cli.Context, repo *repository.PostgresStreamRepository) error {
				streams, err := repo.List(c.Context)
				if err != nil {
					return cli.Exit("Failed to list stations: "+err.Error(), 1)
				}
				if len(streams) == 0 {
					log.Println("No stations stored, the bot uses its built-in catalog.")
					return nil
				}
				for _, s := range streams {
					fmt.Printf("%-28s row=%d %-10s %s %s\n", s.Key, s.Row, s.Style, s.Label, s.URL)
				}
				return nil
			}),
		},
		{
			Name:      "add",
			Usage:     "Add or update a station",
			ArgsUsage: "<key>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "label", Usage: "Button label", Required: true},
				&cli.StringFlag{Name: "url", Usage: "Source URL (HLS, Icecast, AAC, OGG)", Required: true},
				&cli.StringFlag{Name: "emoji", Usage: "Button emoji"},
				&cli.StringFlag{Name: "style", Usage: "primary, secondary, success or danger", Value: catalog.StylePrimary},
				&cli.IntFlag{Name: "row", Usage: "Control panel row"},
			},
			Action: withRepository(func(c *cli.Context, repo *repository.PostgresStreamRepository) error {
				key, err := requireArg(c, "station key")
				if err != nil {
					return err
				}
				stream := catalog.Stream{
					Key:   key,
					Label: c.String("label"),
					URL:   c.String("url"),
					Emoji: c.String("emoji"),
					Style: c.String("style"),
					Row:   c.Int("row"),
				}
				if err := repo.Save(c.Context, stream); err != nil {
					return cli.Exit("Failed to save station: "+err.Error(), 1)
				}
				log.Printf("Station %s saved.", key)
				return nil
			}),
		},
		{
			Name:      "remove",
			Usage:     "Remove a station",
			ArgsUsage: "<key>",
			Action: withRepository(func(c *cli.Context, repo *repository.PostgresStreamRepository) error {
				key, err := requireArg(c, "station key")
				if err != nil {
					return err
				}
				deleted, err := repo.Delete(c.Context, key)
				if err != nil {
					return cli.Exit("Failed to remove station: "+err.Error(), 1)
				}
				if !deleted {
					return cli.Exit(fmt.Sprintf("Station %s does not exist", key), 1)
				}
				log.Printf("Station %s removed.", key)
				return nil
			}),
		},
		{
			Name:      "import",
			Usage:     "Replace the stored stations with a YAML catalog, or the built-in one with --default",
			ArgsUsage: "[catalog.yaml]",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "default", Usage: "Import the built-in catalog"},
			},
			Action: withRepository(func(c *cli.Context, repo *repository.PostgresStreamRepository) error {
				var cat *catalog.Catalog
				var err error
				if c.Bool("default") {
					cat, err = catalog.Default()
				} else {
					path, argErr := requireArg(c, "catalog path")
					if argErr != nil {
						return argErr
					}
					cat, err = catalog.Load(path)
				}
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}

				if err := repo.Import(c.Context, cat.All()); err != nil {
					return cli.Exit("Failed to import catalog: "+err.Error(), 1)
				}
				log.Printf("Imported %d stations.", cat.Len())
				return nil
			}),
		},
	},
}

var blocklistCommands = []*cli.Command{
	{
		Name:      "block",
		Usage:     "Take a station off air",
		ArgsUsage: "<key>",
		Action: withBlocklist(func(c *cli.Context, b *blocklist.RedisBlocklist) error {
			key, err := requireArg(c, "station key")
			if err != nil {
				return err
			}
			if err := b.Block(c.Context, key); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			log.Printf("Station %s blocked.", key)
			return nil
		}),
	},
	{
		Name:      "unblock",
		Usage:     "Put a blocked station back on air",
		ArgsUsage: "<key>",
		Action: withBlocklist(func(c *cli.Context, b *blocklist.RedisBlocklist) error {
			key, err := requireArg(c, "station key")
			if err != nil {
				return err
			}
			if err := b.Unblock(c.Context, key); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			log.Printf("Station %s unblocked.", key)
			return nil
		}),
	},
	{
		Name:  "blocked",
		Usage: "List blocked stations",
		Action: withBlocklist(func(c *cli.Context, b *blocklist.RedisBlocklist) error {
			keys, err := b.List(c.Context)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if len(keys) == 0 {
				log.Println("No stations are blocked.")
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		}),
	},
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "radio-relay-cli",
		Description: "An operator tool for the radio relay's station catalog and blocklist",
		Commands:    append([]*cli.Command{streamsCommand}, blocklistCommands...),
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
