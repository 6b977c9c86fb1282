package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"pandatv/src"
	"pandatv/src/snap"
	"pandatv/src/tracing"
)

// Name : Program Name
const Name = "pandatv"

// DBVersion : Playlist store schema version
const DBVersion = "1.0.0"

// APIVersion : API Version
const APIVersion = "1.0.0"

var homeDirectory = fmt.Sprintf("%s%s.%s%s", src.GetUserHomeDirectory(), string(os.PathSeparator), strings.ToLower(Name), string(os.PathSeparator))
var samplePath = fmt.Sprintf("%spath%sto%spandatv%s", string(os.PathSeparator), string(os.PathSeparator), string(os.PathSeparator), string(os.PathSeparator))

var configFolder = flag.String("config", "", ": Config Folder        ["+samplePath+"] (default: "+homeDirectory+")")
var port = flag.String("port", "", ": Server port          [34400] (default: 34400)")
var playlist = flag.String("playlist", "", ": M3U playlist         [file path or http(s) URL]")

var debug = flag.Int("debug", 0, ": Debug level          [0 - 3] (default: 0)")
var info = flag.Bool("info", false, ": Show system info")
var version = flag.Bool("version", false, ": Show system version")
var h = flag.Bool("h", false, ": Show help")

func main() {
	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() (err error) {
	// Handle SIGINT (CTRL+C) and SIGTERM gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Separate Build Number from Version Number
	var build = strings.Split(src.Version, ".")

	var system = &src.System
	system.APIVersion = APIVersion
	system.Build = build[len(build)-1:][0]
	system.DBVersion = DBVersion
	system.Name = Name
	system.Version = strings.Join(build[0:len(build)-1], ".")

	flag.Parse()

	if *h {
		flag.Usage()
		return nil
	}

	if *version {
		src.ShowSystemVersion()
		return nil
	}

	// Debug Level
	system.Flag.Debug = *debug
	if system.Flag.Debug > 3 {
		flag.Usage()
		return nil
	}

	system.Flag.Port = *port
	system.Flag.Playlist = *playlist

	// Storage location for the Configuration Files
	if len(*configFolder) > 0 {
		system.Folder.Config = *configFolder
	}

	defer func() {
		if r := recover(); r != nil {
			printPanic(r)
			panic(r)
		}
	}()

	// Display System Information
	if *info {
		system.Flag.Info = true

		if err = src.Init(); err != nil {
			return
		}

		src.ShowSystemInfo()
		return nil
	}

	if err := snap.LoadEnv("otel.env"); err != nil {
		log.Printf("could not load otel.env from snap: %v", err)
	}

	if err = src.Init(); err != nil {
		return
	}

	exporterType, err := tracing.ParseExporterType(src.Settings.OtelExporter)
	if err != nil {
		src.ShowError(err, 1030)
		exporterType = tracing.ExporterTypeStdout
	}

	otelShutdown, err := tracing.SetupOTelSDK(ctx, exporterType, Name)
	if err != nil {
		return
	}
	// Handle shutdown properly so nothing leaks.
	defer func() {
		err = errors.Join(err, otelShutdown(context.Background()))
	}()

	if err = src.StartSystem(ctx); err != nil {
		return
	}
	defer func() {
		err = errors.Join(err, src.StopSystem())
	}()

	if err = src.InitMaintenance(ctx); err != nil {
		return
	}

	if err = src.StartSSDP(ctx); err != nil {
		src.ShowError(err, 4100)
		err = nil
	}

	// Blocks until the signal context is done.
	err = src.StartWebserver(ctx)
	stop()

	return
}

func printPanic(r any) {
	fmt.Println()
	fmt.Println("* * * * * FATAL ERROR * * * * *")
	fmt.Println("OS:  ", runtime.GOOS)
	fmt.Println("Arch:", runtime.GOARCH)
	fmt.Println("Err: ", r)
	fmt.Println()

	pc := make([]uintptr, 20)
	n := runtime.Callers(3, pc)

	for _, p := range pc[:n] {
		if f := runtime.FuncForPC(p); f != nil {
			file, line := f.FileLine(p)
			if !strings.HasPrefix(file, "?") {
				fmt.Printf("%s:%d %s\n", filepath.Base(file), line, f.Name())
			}
		}
	}

	fmt.Println()
	fmt.Println("* * * * * * * * * * * * * * * *")
}
