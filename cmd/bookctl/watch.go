package main

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"medbook/internal/booking"
	"medbook/internal/domain"
)

const reconnectDelay = 2 * time.Second

func newWatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow availability for a date until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSettings(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			sess, err := openSession(ctx, s, func(st booking.State) {
				if st.Step != booking.StepSelectTime {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "\n-- %s\n", time.Now().Format(time.TimeOnly))
				renderState(out, st)
			})
			if err != nil {
				return err
			}
			defer sess.Close()

			date := dateFlag(v)
			if err := sess.wizard.SelectDate(ctx, date); err != nil {
				return err
			}

			streamURL, err := slotStreamURL(s.APIURL, s.DoctorID)
			if err != nil {
				return err
			}
			go followSlotEvents(ctx, streamURL, s.Token, sess.logger, func(ev domain.SlotEvent) {
				if ev.Date == date {
					sess.wizard.Refresh(ctx)
				}
			})

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().String("date", "", "date (YYYY-MM-DD), defaults to today")
	return cmd
}

// slotStreamURL maps an API base such as http://host/api/v1 onto the slot
// event socket ws://host/ws/slots?doctor_id=N.
func slotStreamURL(apiURL string, doctorID int64) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid api url %q", apiURL)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws/slots"
	u.RawQuery = url.Values{"doctor_id": {strconv.FormatInt(doctorID, 10)}}.Encode()
	return u.String(), nil
}

// followSlotEvents keeps a websocket subscription open until ctx is done,
// reconnecting after failures. The wizard's own poller covers the gaps.
func followSlotEvents(ctx context.Context, streamURL, token string, logger *zap.Logger, onEvent func(domain.SlotEvent)) {
	header := make(map[string][]string)
	if token != "" {
		header["Authorization"] = []string{"Bearer " + token}
	}

	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, header)
		if err != nil {
			logger.Debug("slot stream unavailable", zap.Error(err))
		} else {
			readSlotEvents(ctx, conn, logger, onEvent)
		}

		select {
		case <-ctx.Done():
		case <-time.After(reconnectDelay):
		}
	}
}

func readSlotEvents(ctx context.Context, conn *websocket.Conn, logger *zap.Logger, onEvent func(domain.SlotEvent)) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		var ev domain.SlotEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				logger.Debug("slot stream closed", zap.Error(err))
			}
			return
		}
		onEvent(ev)
	}
}
