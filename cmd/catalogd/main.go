package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/svpecas/catalogd/config"
	"github.com/svpecas/catalogd/internal/adminapi"
	"github.com/svpecas/catalogd/internal/app"
	"github.com/svpecas/catalogd/internal/webserver"
	"go.uber.org/zap"
)

var (
	h        bool
	showVer  bool
	conffile string
)

const version = "v1.2.0"

func init() {
	flag.BoolVar(&h, "h", false, "help usage")
	flag.BoolVar(&showVer, "v", false, "print version")
	flag.StringVar(&conffile, "c", "/etc/catalogd.yml", "config file")
}

func main() {
	flag.Parse()
	if h {
		flag.Usage()
		return
	}
	if showVer {
		fmt.Println("catalogd", version)
		return
	}

	cfg := config.LoadConfig(conffile)
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "init failed:", err)
		os.Exit(1)
	}
	defer application.Release()

	webserver.Init(application)
	adminapi.RegisterRoutes()

	if err := webserver.Listen(); err != nil {
		zap.L().Fatal("webserver stopped", zap.Error(err))
	}
}
