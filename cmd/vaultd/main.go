package main

import (
	"crypto/tls"
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/service"
	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/zrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	"github.com/aegisline/corectl/internal/config"
	"github.com/aegisline/corectl/internal/transport/grpcsrv"
	"github.com/aegisline/corectl/internal/transport/healthrest"
)

var configFile = flag.String("f", "etc/vaultd.yaml", "the config file")

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

	vaultServer := grpcsrv.NewVaultServer(ctx.Vault, ctx.Registry)

	rpcServer, err := zrpc.NewServer(c.RpcServerConf, func(grpcServer *grpc.Server) {
		grpcsrv.Register(grpcServer, vaultServer)
		if c.Mode == service.DevMode || c.Mode == service.TestMode {
			reflection.Register(grpcServer)
		}
	})
	if err != nil {
		logx.Must(err)
	}

	var serverTLS *tls.Config
	if c.MTLS.Enable {
		serverTLS, err = c.MTLS.ServerTLSConfig()
		if err != nil {
			logx.Must(err)
		}
		rpcServer.AddOptions(grpc.Creds(credentials.NewTLS(serverTLS)))
	}
	defer rpcServer.Stop()

	if c.Health.Port != 0 {
		healthServer := rest.MustNewServer(c.Health)
		healthrest.AddTo(healthServer, ctx.Registry)
		defer healthServer.Stop()
		go func() {
			fmt.Printf("Starting vaultd health server at %s:%d...\n", c.Health.Host, c.Health.Port)
			healthServer.Start()
		}()
	}

	fmt.Printf("Starting vaultd rpc server at %s...\n", c.ListenOn)
	rpcServer.Start()
}
