// Command tapascoctl is a small CLI for probing tapasco devices: listing
// what's attached, reading a device's driver version, and running a single
// processing element job against a device for smoke testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tapasco-rs/runtime/pkg/device"
	"github.com/tapasco-rs/runtime/pkg/interrupt"
	"github.com/tapasco-rs/runtime/pkg/pe"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("tapascoctl: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		err = runVersion(os.Args[2:])
	case "enum", "scan":
		err = runEnum(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "run":
		err = runRun(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tapascoctl <command> [flags]

commands:
  version           print this tool's version
  enum              list attached tapasco devices
  status <dev>      print a device's driver version
  run <dev>         program one PE argument and run it, for smoke testing
  help              show this message`)
}

const toolVersion = "0.1.0"

func runVersion(args []string) error {
	fmt.Println(toolVersion)
	return nil
}

func runEnum(args []string) error {
	infos, err := device.Scan()
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Printf("%d\t%s\n", info.Index, info.Path)
	}
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Parse(args)

	path := "/dev/tapasco0"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	dev, err := device.OpenWithTimeout(path, 2*time.Second, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer dev.Close()

	major, minor, revision, err := dev.Info()
	if err != nil {
		return fmt.Errorf("device info: %w", err)
	}
	fmt.Printf("%s: driver version %d.%d.%d\n", path, major, minor, revision)
	return nil
}

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	peOffset := fs.Uint64("pe-offset", 0x10000, "register offset of the PE to run")
	interruptIndex := fs.Uint("interrupt", 0, "interrupt source index for the PE")
	arg0 := fs.Uint64("arg0", 0, "value written to argument slot 0")
	fs.Parse(args)

	path := "/dev/tapasco0"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	dev, err := device.OpenWithTimeout(path, 2*time.Second, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer dev.Close()

	src := interrupt.NewDeviceSource(dev.File(), uint32(*interruptIndex))

	p := pe.New(pe.Config{
		ID:     0,
		Base:   *peOffset,
		Name:   "tapascoctl-run",
		Window: dev.Window(),
		Interrupt: src,
	})

	if err := p.EnableInterrupt(); err != nil {
		return fmt.Errorf("enable interrupt: %w", err)
	}
	if err := p.SetArg(0, pe.Single64(*arg0)); err != nil {
		return fmt.Errorf("set arg0: %w", err)
	}
	if err := p.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	rv, _, err := p.Release(true)
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}

	fmt.Printf("pe returned %#x\n", rv)
	return nil
}
