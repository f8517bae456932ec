package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"

	"github.com/aegisline/corectl/internal/config"
	"github.com/aegisline/corectl/internal/transport/healthrest"
)

var configFile = flag.String("f", "etc/agentcore.yaml", "the config file")

// main wires the Secrets Client, Snapshot Manager, and Sandboxed Executor
// together and serves the common Health surface over REST, the same shape
// vaultd answers on its own Health route. agentcore has no domain RPC
// surface of its own to serve: it is the calling side of the Vault & Token
// Service's RPC, and its Executor is driven in-process by whatever embeds
// this binary's ServiceContext, not by a wire method.
func main() {
	flag.Parse()

	c, err := config.Load(*configFile)
	if err != nil {
		logx.Must(err)
	}

	ctx, err := NewServiceContext(*c)
	if err != nil {
		logx.Must(err)
	}

	var healthServer *rest.Server
	if c.Health.Port != 0 {
		healthServer = rest.MustNewServer(c.Health)
		healthrest.AddTo(healthServer, ctx.Registry)
		go func() {
			fmt.Printf("Starting agentcore health server at %s:%d...\n", c.Health.Host, c.Health.Port)
			healthServer.Start()
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("agentcore shutting down")
	if healthServer != nil {
		healthServer.Stop()
	}
}
