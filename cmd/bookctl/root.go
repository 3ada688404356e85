package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"medbook/internal/booking"
	"medbook/internal/client"
	"medbook/internal/domain"
	"medbook/pkg/logger"
)

type settings struct {
	APIURL   string
	Token    string
	Timeout  time.Duration
	LogLevel string
	DoctorID int64
	Service  domain.ServiceKind
	Refresh  time.Duration
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "bookctl",
		Short:         "Browse availability and book appointments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.bookctl.yaml)")
	flags.String("api-url", "http://localhost:8080/api/v1", "booking API base URL")
	flags.String("token", "", "bearer token")
	flags.Duration("timeout", 10*time.Second, "per-request timeout")
	flags.String("log-level", "warn", "log level")
	flags.Int64("doctor", 0, "doctor id")
	flags.String("service", string(domain.ServiceRegularCheckup), "regular_checkup or follow_up")
	flags.Duration("refresh", booking.DefaultRefreshInterval, "booked slot refresh interval")

	root.AddCommand(newSlotsCmd(v), newBookCmd(v), newWatchCmd(v))
	return root
}

func loadConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix("BOOKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".bookctl")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}
	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func readSettings(v *viper.Viper) (settings, error) {
	s := settings{
		APIURL:   v.GetString("api-url"),
		Token:    v.GetString("token"),
		Timeout:  v.GetDuration("timeout"),
		LogLevel: v.GetString("log-level"),
		DoctorID: v.GetInt64("doctor"),
		Service:  domain.ServiceKind(v.GetString("service")),
		Refresh:  v.GetDuration("refresh"),
	}
	if s.DoctorID <= 0 {
		return s, fmt.Errorf("--doctor is required")
	}
	if !s.Service.Valid() {
		return s, fmt.Errorf("unknown service %q", s.Service)
	}
	return s, nil
}

// session is an open wizard with the service already chosen.
type session struct {
	settings settings
	client   *client.Client
	wizard   *booking.Wizard
	logger   *zap.Logger
}

func openSession(ctx context.Context, s settings, onChange func(booking.State)) (*session, error) {
	log, err := logger.New("development", s.LogLevel)
	if err != nil {
		return nil, err
	}

	c, err := client.New(client.Config{BaseURL: s.APIURL, Token: s.Token, Timeout: s.Timeout, Logger: log})
	if err != nil {
		return nil, err
	}

	w, err := booking.Open(ctx, booking.Deps{
		Gateway:         c,
		Logger:          log,
		RefreshInterval: s.Refresh,
		OnChange:        onChange,
	}, s.DoctorID)
	if err != nil {
		return nil, err
	}

	if err := w.SelectService(s.Service); err != nil {
		w.Close()
		return nil, err
	}
	return &session{settings: s, client: c, wizard: w, logger: log}, nil
}

func (s *session) Close() {
	s.wizard.Close()
	_ = s.logger.Sync()
}
