// Command goomsg is a small demo CLI exercising the messaging core's
// channel patterns end to end: `goomsg serve` runs a Rep echo server,
// `goomsg ask` connects as a Req client and prints the reply.
//
// Grounded on the teacher's cmd/cli/cli/app.go urfave/cli application shape
// (cli.NewApp with a Commands list), scaled down from a full cluster CLI to
// two demo subcommands.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/darragh-downey/goo-messaging/channel"
	"github.com/darragh-downey/goo-messaging/cmn/nlog"
	"github.com/darragh-downey/goo-messaging/transport"
)

const appName = "goomsg"

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "demo CLI for the goo messaging core"
	app.Commands = []cli.Command{
		serveCmd,
		askCmd,
	}
	if err := app.Run(os.Args); err != nil {
		nlog.Fatalf("%s: %v", appName, err)
	}
}

var addrFlag = cli.StringFlag{
	Name:  "addr",
	Value: "tcp://127.0.0.1:17171",
	Usage: "endpoint url to bind/connect",
}

var serveCmd = cli.Command{
	Name:  "serve",
	Usage: "run a Rep echo server until interrupted",
	Flags: []cli.Flag{addrFlag},
	Action: func(c *cli.Context) error {
		rep := channel.Create(channel.Rep, 0, 16, channel.Buffered)
		defer rep.Destroy()

		addr := c.String("addr")
		if err := rep.Bind(addr, transport.Options{}); err != nil {
			return err
		}
		nlog.Infof("%s: serving on %s", appName, addr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		done := make(chan struct{})
		go func() {
			for {
				req, err := rep.ReceiveRequest(0)
				if err != nil {
					close(done)
					return
				}
				reply := append([]byte("echo:"), req.Payload()...)
				if err := rep.Reply(reply, 0); err != nil {
					nlog.Warningf("%s: reply: %v", appName, err)
				}
			}
		}()

		select {
		case <-sigCh:
		case <-done:
		}
		return nil
	},
}

var askCmd = cli.Command{
	Name:  "ask",
	Usage: "send one Req and print the Rep reply",
	Flags: []cli.Flag{
		addrFlag,
		cli.StringFlag{Name: "message", Value: "ping", Usage: "request body"},
	},
	Action: func(c *cli.Context) error {
		req := channel.Create(channel.Req, 0, 4, channel.Buffered)
		defer req.Destroy()
		req.SetTimeout(5 * time.Second)

		if err := req.Connect(c.String("addr"), transport.Options{}); err != nil {
			return err
		}
		reply, err := req.Request([]byte(c.String("message")), 0)
		if err != nil {
			return err
		}
		fmt.Println(string(reply.Payload()))
		return nil
	},
}
