// Package main wires configuration, logging, the credential store, the
// capture device, and the backend gateway into the scan session state
// machine, and drives it from an interactive shell.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avitkov/cardscope/internal/client/camera"
	"github.com/avitkov/cardscope/internal/client/capture"
	"github.com/avitkov/cardscope/internal/client/credential"
	"github.com/avitkov/cardscope/internal/client/gateway"
	"github.com/avitkov/cardscope/internal/client/session"
	"github.com/avitkov/cardscope/internal/config"
	"github.com/avitkov/cardscope/internal/logger"
)

var (
	version   string
	buildDate string
)

// repl runs the interactive shell loop, dispatching commands to the state
// machine. The prompt shows the current state so the user knows which
// commands apply.
func repl(m *session.Machine) {
	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	fmt.Println("Type 'help' for a list of commands.")
	for {
		fmt.Printf("cardscope[%s]> ", m.State())
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login <email> <password>, register <email> <password>,")
			fmt.Println("  scan, capture, cancel, save, dismiss, library, back, train, logout, exit")
		case "login":
			if len(args) < 3 {
				fmt.Println("Usage: login <email> <password>")
				continue
			}
			report(m.Login(ctx, args[1], args[2]), "Signed in.")
		case "register":
			if len(args) < 3 {
				fmt.Println("Usage: register <email> <password>")
				continue
			}
			report(m.Register(ctx, args[1], args[2]), "Registered. Please sign in.")
		case "scan":
			report(m.StartScan(), "Camera is live. Use 'capture' to scan a card or 'cancel' to stop.")
		case "cancel":
			report(m.CancelScan(), "Scan cancelled.")
		case "capture":
			if err := m.Capture(); err != nil {
				printErr(err)
				continue
			}
			printResult(m)
		case "save":
			report(m.Save(ctx), "Card saved to library.")
		case "dismiss":
			report(m.Dismiss(), "Result dismissed.")
		case "library":
			if err := m.OpenLibrary(ctx); err != nil {
				printErr(err)
				continue
			}
			printLibrary(m)
		case "back":
			report(m.CloseLibrary(), "")
		case "train":
			msg, err := m.Train(ctx)
			if err != nil {
				printErr(err)
				continue
			}
			fmt.Println(msg)
		case "logout":
			report(m.Logout(), "Signed out.")
		case "exit":
			if m.State() == session.StateScanning {
				_ = m.CancelScan()
			}
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// report prints either the error or the success message.
func report(err error, ok string) {
	if err != nil {
		printErr(err)
		return
	}
	if ok != "" {
		fmt.Println(ok)
	}
}

func printErr(err error) {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		fmt.Println("Your session has expired. Please sign in again.")
	case errors.Is(err, camera.ErrDeviceUnavailable):
		fmt.Println("No capture device is available on this machine.")
	case errors.Is(err, camera.ErrPermissionDenied):
		fmt.Println("Capture permission was denied. Check your OS screen/camera settings.")
	case errors.Is(err, capture.ErrEmptyFrame):
		fmt.Println("The camera has not produced a frame yet. Try again.")
	case errors.Is(err, gateway.ErrInvalidCredentials):
		fmt.Println("Invalid email or password.")
	default:
		fmt.Println("Error:", err)
	}
}

// printResult renders the held scan result, including the valid
// "no match" outcome.
func printResult(m *session.Machine) {
	res := m.Result()
	if res == nil {
		return
	}
	fmt.Printf("Result (%s), confidence %.1f%%\n", res.ScanMethod, res.Confidence*100)
	card := res.CardData
	if card == nil {
		fmt.Println("No card detected accurately. Use 'dismiss' to scan another.")
		return
	}
	fmt.Printf("  Name: %s (%s)\n", card.Name, card.Game)
	fmt.Printf("  Set:  %s-%s\n", card.SetCode, card.CardNumber)
	if card.Rarity != "" {
		fmt.Printf("  Rarity: %s\n", card.Rarity)
	}
	if card.Price != "" {
		fmt.Printf("  Price: $%s\n", card.Price)
	}
	if card.Description != "" {
		fmt.Printf("  %s\n", card.Description)
	}
	if res.RequiresConfirmation {
		fmt.Println("  Please verify the match before saving.")
	}
	fmt.Println("Use 'save' to keep it or 'dismiss' to scan another.")
}

func printLibrary(m *session.Machine) {
	cards := m.Library()
	if len(cards) == 0 {
		fmt.Println("No cards stored yet.")
		return
	}
	fmt.Printf("My card library (%d):\n", len(cards))
	for _, card := range cards {
		line := fmt.Sprintf("  %s (%s) %s-%s", card.Name, card.Game, card.SetCode, card.CardNumber)
		if card.Rarity != "" {
			line += " | " + card.Rarity
		}
		if card.Price != "" {
			line += " | $" + card.Price
		}
		fmt.Println(line)
	}
}

func main() {
	options := config.Parse()

	fmt.Printf("CardScope Client\nVersion: %s\nBuild Date: %s\n",
		orNA(version), orNA(buildDate))

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	baseURL := gateway.Resolve(options.BackendHost, options.BackendPort, options.Secure)
	zapLogger.Info("using backend", zap.String("url", baseURL))

	store := credential.NewStore(options.CredentialFile)
	backend := gateway.New(baseURL, &http.Client{Timeout: 30 * time.Second}, zapLogger)
	manager := camera.NewManager(camera.DisplayOpener{})

	machine := session.New(store, manager, capture.Capture, backend,
		camera.Facing(options.Facing), zapLogger)

	repl(machine)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
