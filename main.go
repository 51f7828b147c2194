// main.go - Main entry point for the Draw Engine SoC model

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"os"
)

func boilerPlate() {
	fmt.Println("\nCOJT Draw Engine - 2D draw accelerator model with a VirtIO-GPU frontend")
	fmt.Println("(c) 2025 - 2026 COJT Draw Engine contributors")
	fmt.Println("https://github.com/cojt/drawengine")
	fmt.Println("License: GPLv3 or later")
	fmt.Println()
}

func main() {
	cfg := DefaultMachineConfig()

	flags := flag.NewFlagSet("drawengine", flag.ExitOnError)
	flags.BoolVar(&cfg.Headless, "headless", false, "run without a window")
	flags.IntVar(&cfg.Scale, "scale", 1, "integer window scaling factor")
	flags.StringVar(&cfg.Script, "script", "", "Lua scene script to run")
	flags.StringVar(&cfg.Image, "image", "", "image file to upload and blit")
	flags.BoolVar(&cfg.Monitor, "monitor", false, "drop into the interactive monitor")
	showDTS := flags.Bool("dts", false, "print the devicetree fragment and exit")
	showCmdline := flags.Bool("cmdline", false, "print the Linux kernel parameter and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if *showDTS {
		fmt.Print(cfg.DeviceTreeNodes())
		return
	}
	if *showCmdline {
		fmt.Println(cfg.LinuxCommandLine())
		return
	}

	boilerPlate()

	machine := NewMachine()
	machine.Start()
	defer machine.Stop()

	backend := DISPLAY_BACKEND_EBITEN
	if cfg.Headless {
		backend = DISPLAY_BACKEND_HEADLESS
	}
	display, err := NewDisplayOutput(backend)
	if err != nil {
		fmt.Printf("Failed to initialize display: %v\n", err)
		os.Exit(1)
	}
	if err := display.SetDisplayConfig(DisplayConfig{
		Width:       DISPLAY_WIDTH,
		Height:      DISPLAY_HEIGHT,
		Scale:       cfg.Scale,
		RefreshRate: COMPOSITOR_REFRESH_RATE,
		VSync:       true,
	}); err != nil {
		fmt.Printf("Failed to configure display: %v\n", err)
		os.Exit(1)
	}
	if err := display.Start(); err != nil {
		fmt.Printf("Failed to start display: %v\n", err)
		os.Exit(1)
	}
	defer display.Close()

	if overlay, ok := display.(interface {
		SetStatusProvider(func() []statusToken)
	}); ok {
		overlay.SetStatusProvider(machine.StatusTokens)
	}

	compositor := NewDisplayCompositor(machine.Engine, machine.VRAM, display)
	if err := compositor.Start(); err != nil {
		fmt.Printf("Failed to start compositor: %v\n", err)
		os.Exit(1)
	}
	defer compositor.Stop()

	if cfg.Image != "" {
		asset, err := LoadImageAsset(cfg.Image, PIXFMT_ARGB8888, DISPLAY_WIDTH, DISPLAY_HEIGHT)
		if err != nil {
			fmt.Printf("Error loading image: %v\n", err)
			os.Exit(1)
		}
		srcAddr := uint32(VRAM_START + DISPLAY_WIDTH*DISPLAY_HEIGHT*4)
		if err := asset.UploadTo(machine.VRAM, srcAddr); err != nil {
			fmt.Printf("Error uploading image: %v\n", err)
			os.Exit(1)
		}
		if err := machine.Engine.SubmitList(asset.BlitList(srcAddr, 0, 0)); err != nil {
			fmt.Printf("Error blitting image: %v\n", err)
			os.Exit(1)
		}
		machine.Engine.WaitIdle()
	}

	if cfg.Script != "" {
		host := NewScriptHost(machine)
		defer host.Close()
		if err := host.RunFile(cfg.Script); err != nil {
			fmt.Printf("Script error: %v\n", err)
			os.Exit(1)
		}
		machine.Engine.WaitIdle()
	}

	if cfg.Monitor {
		mon := NewMonitor(machine, compositor)
		if err := mon.Run(); err != nil {
			fmt.Printf("Monitor error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// With a window, stay up until it closes; headless runs exit once the
	// script or image work is done.
	if waiter, ok := display.(interface{ Done() <-chan struct{} }); ok {
		<-waiter.Done()
	}
}
