package main

import (
	"context"
	"fmt"
	"os"

	"ridehail/config"
	"ridehail/internal/mylogger"

	adminservice "ridehail/internal/admin-service"
	authservice "ridehail/internal/auth-service"
	rideservice "ridehail/internal/ride-service"
)

const usage = `usage: app <service>

services:
  ride-service    ride lifecycle API and realtime channel
  auth-service    registration and login
  admin-service   platform overview and overrides
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	service := os.Args[1]

	bootLog := mylogger.New(service, mylogger.LevelInfo)
	cfg := config.New(bootLog)
	mylog := mylogger.New(service, cfg.App.LogLevel)

	ctx := context.Background()

	var err error
	switch service {
	case "ride-service":
		err = rideservice.Execute(ctx, mylog, cfg)
	case "auth-service":
		err = authservice.Execute(ctx, mylog, cfg)
	case "admin-service":
		err = adminservice.Execute(ctx, mylog, cfg)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		mylog.Error("service exited with error", err)
		os.Exit(1)
	}
}
