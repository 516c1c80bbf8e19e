// kiosk-setup links a tablet to a restaurant table from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yeremiapane/ordengo-kiosk/config"
	"github.com/yeremiapane/ordengo-kiosk/database"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	daemonURL := flag.String("daemon", "http://"+cfg.ListenAddr(), "local API of the running kiosk daemon")
	direct := flag.Bool("direct", false, "write the device store even if a daemon is running")
	flag.Parse()

	// Log lines would tear the alternate screen.
	utils.SilenceLoggers()

	pairer, via, err := choosePairer(cfg, *daemonURL, *direct)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newSetupModel(pairer, via), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running setup: %v\n", err)
		os.Exit(1)
	}
}

func choosePairer(cfg config.Config, daemonURL string, direct bool) (Pairer, string, error) {
	if !direct {
		d := newDaemonPairer(daemonURL)
		if d.Reachable(context.Background()) {
			return d, "daemon at " + daemonURL, nil
		}
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, "", err
	}
	if err := database.Migrate(db); err != nil {
		return nil, "", err
	}
	store := services.NewDeviceStore(db)
	backend := services.NewBackendClient(cfg.APIBaseURL, cfg.HTTPTimeout, store.TableToken)
	p, err := newDirectPairer(store, backend, cfg.DefaultLanguage, cfg.DefaultCurrency)
	if err != nil {
		return nil, "", err
	}
	return p, "device store " + cfg.DBDSN, nil
}
