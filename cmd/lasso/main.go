// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

// lasso is a small STOMP workbench: publish a message, tail a
// destination, or run a local dev broker.
//
//	lasso publish --destination /queue/demo "hello"
//	lasso subscribe --destination "/queue/*"
//	lasso broker --port 61613
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pb33f/lasso/broker"
	"github.com/pb33f/lasso/client"
	"github.com/pb33f/lasso/config"
	"github.com/pb33f/lasso/connection"
	"github.com/pb33f/lasso/frame"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]

	flags := pflag.NewFlagSet(command, pflag.ExitOnError)
	config.RegisterFlags(flags)
	destination := flags.String("destination", "/queue/demo", "destination to publish or subscribe to")
	receipt := flags.Bool("receipt", false, "publish: wait for a broker receipt")
	configFile := flags.String("config", "", "optional config file")
	verbose := flags.BoolP("verbose", "v", false, "debug logging")
	flags.Parse(os.Args[2:])

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(flags, *configFile)
	if err != nil {
		fatal(err)
	}

	switch command {
	case "publish":
		err = runPublish(cfg, *destination, *receipt, flags.Args())
	case "subscribe":
		err = runSubscribe(cfg, *destination)
	case "broker":
		err = runBroker(cfg)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lasso <publish|subscribe|broker> [flags] [message...]")
}

func fatal(err error) {
	color.Red("lasso: %v", err)
	os.Exit(1)
}

func provider(cfg *config.Config) connection.Provider {
	if cfg.UseWebSocket {
		return connection.NewPool(connection.WebSocketDialer(cfg.Endpoint, cfg.ConnectTimeout))
	}
	return connection.NewPool(connection.TCPDialer(cfg.ConnectTimeout))
}

func runPublish(cfg *config.Config, destination string, wantReceipt bool, args []string) error {
	body := []byte("ping")
	if len(args) > 0 {
		body = []byte(args[0])
	}

	if !wantReceipt {
		c := client.NewSimplexClient(cfg.Host, cfg.Port, provider(cfg))
		if err := c.Connect(cfg.Login, cfg.Passcode); err != nil {
			return err
		}
		defer c.Disconnect()

		if err := c.Send(destination, body); err != nil {
			return err
		}
		color.Green("sent %d bytes to %s", len(body), destination)
		return nil
	}

	// a receipt needs a read loop, so publish through a duplex client
	c := client.NewDuplexClient(cfg.Host, cfg.Port, provider(cfg))
	group, ctx := errgroup.WithContext(context.Background())
	group.Go(func() error {
		return c.Listen(ctx)
	})
	defer c.Disconnect()

	waitListening(c)
	if _, err := c.Connect(ctx, cfg.Login, cfg.Passcode); err != nil {
		return err
	}

	r, err := c.SendWithReceipt(ctx, destination, body)
	if err != nil {
		return err
	}
	color.Green("sent %d bytes to %s, receipt %s",
		len(body), destination, r.Header.Get(frame.ReceiptId))

	c.Disconnect()
	return group.Wait()
}

func runSubscribe(cfg *config.Config, destination string) error {
	c := client.NewDuplexClient(cfg.Host, cfg.Port, provider(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return c.Listen(ctx)
	})

	waitListening(c)
	if _, err := c.Connect(ctx, cfg.Login, cfg.Passcode); err != nil {
		return err
	}
	if err := c.Subscribe(destination); err != nil {
		return err
	}
	color.Cyan("subscribed to %s, waiting for messages (ctrl-c to stop)", destination)

	group.Go(func() error {
		for {
			msg, err := c.NextMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			printMessage(msg)
		}
	})

	<-ctx.Done()
	c.Disconnect()

	if err := group.Wait(); err != nil && err != client.ErrListenerClosed {
		return err
	}
	return nil
}

func printMessage(msg *frame.Frame) {
	info, err := client.MessageInfoOf(msg)
	if err != nil {
		color.Yellow("unreadable message headers: %v", err)
		return
	}
	color.Yellow("[%s] %s", info.Destination, string(msg.Body))
	if info.MessageId != "" {
		color.White("  message-id: %s", info.MessageId)
	}
}

func runBroker(cfg *config.Config) error {
	b := broker.New(&broker.Config{
		Login:               cfg.Login,
		Passcode:            cfg.Passcode,
		DestinationPrefixes: cfg.DestinationPrefixes,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	group, ctx := errgroup.WithContext(ctx)

	tcp, err := broker.NewTCPListener(addr)
	if err != nil {
		return err
	}
	group.Go(func() error {
		return b.Serve(tcp)
	})
	color.Green("broker listening on %s", tcp.Addr())

	if cfg.UseWebSocket {
		ws, err := broker.NewWebSocketListener(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port+1),
			cfg.Endpoint, nil)
		if err != nil {
			b.Close()
			return err
		}
		group.Go(func() error {
			return b.Serve(ws)
		})
		color.Green("websocket listener on %s%s", ws.Addr(), cfg.Endpoint)
	}

	<-ctx.Done()
	color.Cyan("shutting down")
	b.Close()
	return group.Wait()
}

// waitListening spins briefly until the read loop is up; a client used
// before that would refuse operations that need the listener.
func waitListening(c *client.DuplexClient) {
	for i := 0; i < 200 && !c.Listening(); i++ {
		time.Sleep(5 * time.Millisecond)
	}
}
