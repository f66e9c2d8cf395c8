package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"holderscan/internal/config"
	"holderscan/internal/handler"
	"holderscan/internal/svc"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"
)

var configFile = flag.String("f", "etc/holderscan.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	server := rest.MustNewServer(c.RestConf)
	defer server.Stop()

	ctx := svc.NewServiceContext(c)
	defer ctx.Close()
	handler.RegisterHandlers(server, ctx)

	// 设置优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Starting server at %s:%d...\n", c.Host, c.Port)
	fmt.Printf("Chains: %d configured, cache at %s\n", len(c.Chains), c.Cache.Dir)

	go func() {
		server.Start()
	}()

	<-quit
	fmt.Println("\nShutting down...")
}
