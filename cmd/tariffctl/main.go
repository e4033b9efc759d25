// tariffctl is the operator CLI of the tariff service.
//
// Usage:
//
//	tariffctl duty --ad-valorem 0.05 --specific 2.50 --value 1000 --quantity 10
//	tariffctl calculate --hts 1234.56.78 --destination US --value 1000 --quantity 10
//	tariffctl convert --amount 100 --from USD --to EUR
//	tariffctl rates set --from USD --to EUR --rate 0.9137 --date 2024-06-01
//	tariffctl profile set --trader TRADER-001 --currency EUR --origin MX
//	tariffctl migrate
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/OpenNSW/tariff/internal/auth"
	"github.com/OpenNSW/tariff/internal/config"
	"github.com/OpenNSW/tariff/internal/database"
	"github.com/OpenNSW/tariff/internal/tariff/engine"
	"github.com/OpenNSW/tariff/internal/tariff/model"
	"github.com/OpenNSW/tariff/internal/tariff/repository"
	"github.com/OpenNSW/tariff/internal/tariff/service"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "tariffctl",
		Usage:   "Compute import duties and manage tariff reference data",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
				return fmt.Errorf("invalid log level %q: %w", c.String("log-level"), err)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			dutyCommand(),
			calculateCommand(),
			convertCommand(),
			ratesCommand(),
			profileCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// DUTY COMMAND
// =============================================================================

func dutyCommand() *cli.Command {
	return &cli.Command{
		Name:  "duty",
		Usage: "Compute the duty of a single rate without a database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ad-valorem", Usage: "Ad valorem rate as a fraction, e.g. 0.05"},
			&cli.StringFlag{Name: "specific", Usage: "Specific rate per unit"},
			&cli.StringFlag{Name: "value", Usage: "Product value", Required: true},
			&cli.Int64Flag{Name: "quantity", Usage: "Quantity in rate units"},
		},
		Action: func(c *cli.Context) error {
			adValorem, err := optionalDecimal(c, "ad-valorem")
			if err != nil {
				return err
			}
			specific, err := optionalDecimal(c, "specific")
			if err != nil {
				return err
			}
			value, err := requiredDecimal(c, "value")
			if err != nil {
				return err
			}

			svc := service.NewCalculationService(nil, nil, nil, service.Options{})
			duty, err := svc.ComputeDuty(model.ComputeDutyDTO{
				AdValoremRate: adValorem,
				SpecificRate:  specific,
				ProductValue:  value,
				Quantity:      c.Int64("quantity"),
			})
			if err != nil {
				return err
			}
			return printJSON(duty)
		},
	}
}

// =============================================================================
// CALCULATE COMMAND
// =============================================================================

func calculateCommand() *cli.Command {
	return &cli.Command{
		Name:  "calculate",
		Usage: "Calculate the MFN and best preferential duty of a product",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "hts", Usage: "HTS code, with or without separators", Required: true},
			&cli.StringFlag{Name: "origin", Usage: "Origin country code"},
			&cli.StringFlag{Name: "destination", Usage: "Destination country code", Required: true},
			&cli.StringFlag{Name: "value", Usage: "Product value in the base currency", Required: true},
			&cli.Int64Flag{Name: "quantity", Usage: "Quantity in rate units"},
			&cli.StringFlag{Name: "currency", Usage: "Currency of the reported amounts"},
			&cli.StringFlag{Name: "date", Usage: "Evaluation date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "start", Usage: "Start of an evaluation range (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "end", Usage: "End of an evaluation range (YYYY-MM-DD)"},
		},
		Action: func(c *cli.Context) error {
			value, err := requiredDecimal(c, "value")
			if err != nil {
				return err
			}
			in := model.CalculationInput{
				HTSCode:            c.String("hts"),
				OriginCountry:      c.String("origin"),
				DestinationCountry: c.String("destination"),
				ProductValue:       value,
				Quantity:           c.Int64("quantity"),
				Currency:           c.String("currency"),
			}

			return withDatabase(func(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
				svc := service.NewCalculationService(newCalculator(db, cfg), nil, nil, service.Options{})

				var response *model.CalculationResponseDTO
				if c.IsSet("start") || c.IsSet("end") {
					start, err := parseDateFlag(c, "start")
					if err != nil {
						return err
					}
					end, err := parseDateFlag(c, "end")
					if err != nil {
						return err
					}
					if start == nil || end == nil {
						return fmt.Errorf("--start and --end must be given together")
					}
					response = svc.CalculateWithDateRange(ctx, in, *start, *end, "")
				} else {
					if in.Date, err = parseDateFlag(c, "date"); err != nil {
						return err
					}
					response = svc.Calculate(ctx, in, "")
				}

				if err := printJSON(response); err != nil {
					return err
				}
				if response.Failed() {
					return cli.Exit(string(response.ErrorCode), 2)
				}
				return nil
			})
		},
	}
}

// =============================================================================
// CONVERT COMMAND
// =============================================================================

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Convert an amount between currencies using stored exchange rates",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amount", Required: true},
			&cli.StringFlag{Name: "from", Required: true},
			&cli.StringFlag{Name: "to", Required: true},
			&cli.StringFlag{Name: "date", Usage: "Rate date (YYYY-MM-DD), latest when omitted"},
		},
		Action: func(c *cli.Context) error {
			amount, err := requiredDecimal(c, "amount")
			if err != nil {
				return err
			}
			asOf, err := parseDateFlag(c, "date")
			if err != nil {
				return err
			}

			return withDatabase(func(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
				svc := service.NewCalculationService(newCalculator(db, cfg), nil, nil, service.Options{})
				conversion, err := svc.Convert(ctx, amount, c.String("from"), c.String("to"), asOf)
				if err != nil {
					return err
				}
				return printJSON(conversion)
			})
		},
	}
}

// =============================================================================
// REFERENCE DATA COMMANDS
// =============================================================================

func ratesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rates",
		Usage: "Manage exchange rates",
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Store the rate of a currency pair for a date, replacing any existing one",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true},
					&cli.StringFlag{Name: "to", Required: true},
					&cli.StringFlag{Name: "rate", Required: true},
					&cli.StringFlag{Name: "date", Usage: "Rate date (YYYY-MM-DD), today when omitted"},
				},
				Action: func(c *cli.Context) error {
					rate, err := requiredDecimal(c, "rate")
					if err != nil {
						return err
					}
					if !rate.IsPositive() {
						return fmt.Errorf("--rate must be positive")
					}
					rateDate := time.Now().UTC().Truncate(24 * time.Hour)
					if asOf, err := parseDateFlag(c, "date"); err != nil {
						return err
					} else if asOf != nil {
						rateDate = *asOf
					}

					exchangeRate := &model.ExchangeRate{
						FromCurrency: engine.NormalizeCurrency(c.String("from")),
						ToCurrency:   engine.NormalizeCurrency(c.String("to")),
						Rate:         rate,
						RateDate:     rateDate,
					}
					return withDatabase(func(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
						if err := repository.NewExchangeRateRepository(db).Save(ctx, exchangeRate); err != nil {
							return err
						}
						return printJSON(exchangeRate)
					})
				},
			},
		},
	}
}

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage trader profiles",
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Create or replace the stored preferences of a trader",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "trader", Required: true},
					&cli.StringFlag{Name: "currency", Usage: "Preferred reporting currency"},
					&cli.StringFlag{Name: "origin", Usage: "Default origin country"},
					&cli.StringFlag{Name: "attributes", Usage: "Free-form JSON object"},
				},
				Action: func(c *cli.Context) error {
					profile := &auth.TraderProfile{
						TraderID:             c.String("trader"),
						PreferredCurrency:    engine.NormalizeOptionalText(c.String("currency")),
						DefaultOriginCountry: engine.NormalizeOptionalText(c.String("origin")),
					}
					if raw := c.String("attributes"); raw != "" {
						profile.Attributes = json.RawMessage(raw)
					}
					return withDatabase(func(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
						if err := auth.NewAuthService(db).UpsertTraderProfile(ctx, profile); err != nil {
							return err
						}
						return printJSON(profile)
					})
				},
			},
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Action: func(c *cli.Context) error {
			return withDatabase(func(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
				return database.Migrate(db)
			})
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// withDatabase opens the configured database for the duration of fn.
func withDatabase(fn func(ctx context.Context, db *gorm.DB, cfg *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()
	return fn(context.Background(), db, cfg)
}

func newCalculator(db *gorm.DB, cfg *config.Config) *engine.Calculator {
	htsCodes := repository.NewHTSCodeRepository(db)
	return engine.NewCalculator(
		htsCodes,
		repository.NewRateRepository(db),
		repository.NewAgreementRepository(db),
		repository.NewExchangeRateRepository(db),
		engine.WithBaseCurrency(cfg.Tariff.BaseCurrency),
	)
}

func requiredDecimal(c *cli.Context, name string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(c.String(name))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return value, nil
}

func optionalDecimal(c *cli.Context, name string) (decimal.NullDecimal, error) {
	if c.String(name) == "" {
		return decimal.NullDecimal{}, nil
	}
	value, err := requiredDecimal(c, name)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(value), nil
}

func parseDateFlag(c *cli.Context, name string) (*time.Time, error) {
	raw := c.String(name)
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s, expected YYYY-MM-DD: %w", name, err)
	}
	return &date, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
