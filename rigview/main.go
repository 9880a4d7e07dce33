package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/hfe-lab/rigctl/pkg/chart"
	"github.com/hfe-lab/rigctl/pkg/config"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		serverFlag = flag.String("server", "http://localhost:8000", "Supervisor base URL")
		tokenFlag  = flag.String("token", "", "Supervisor auth token")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application := app.NewWithID("com.hfe-lab.rigview")
	window := application.NewWindow("Thermal Rig Monitor")
	window.Resize(fyne.NewSize(1100, 700))
	window.CenterOnScreen()

	state := &appState{
		cfg:     cfg,
		window:  window,
		server:  *serverFlag,
		token:   *tokenFlag,
		client:  NewClient(*serverFlag, *tokenFlag),
		readout: widget.NewLabel("T=— °C | valve=— | mode=—"),
		status:  widget.NewLabel("Disconnected"),
	}
	state.chartWidget = chart.New(2*time.Minute, float64(cfg.Control.SetpointC))

	toolbar := createToolbar(state)
	bottom := container.NewVBox(state.readout, state.status)
	window.SetContent(container.NewBorder(toolbar, bottom, nil, nil, state.chartWidget))

	window.SetOnClosed(func() {
		state.disconnect()
	})
	window.ShowAndRun()
}

// appState holds the client application state.
type appState struct {
	cfg    *config.Config
	window fyne.Window

	server string
	token  string
	client *Client

	chartWidget *chart.Widget
	readout     *widget.Label
	status      *widget.Label
	connectBtn  *widget.Button

	cancel context.CancelFunc
}

func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	openBtn := widget.NewButton("Valve Open", func() {
		state.submit("VALVE OPEN")
	})
	closeBtn := widget.NewButton("Valve Close", func() {
		state.submit("VALVE CLOSE")
	})
	autoBtn := widget.NewButton("Valve Auto", func() {
		state.submit("VALVE AUTO")
	})

	pumpEntry := widget.NewEntry()
	pumpEntry.SetPlaceHolder("%")
	pumpBtn := widget.NewButton("Set Pump", func() {
		pct, err := strconv.ParseFloat(pumpEntry.Text, 64)
		if err != nil {
			dialog.ShowError(fmt.Errorf("invalid pump percent: %q", pumpEntry.Text), state.window)
			return
		}
		state.submit(fmt.Sprintf("PUMP %.1f", pct))
	})

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn),
		container.NewHBox(openBtn, closeBtn, autoBtn, pumpEntry, pumpBtn),
		nil,
	)
}

// submit posts one command line without blocking the UI goroutine.
func (s *appState) submit(line string) {
	go func() {
		if err := s.client.SendCommand(line); err != nil {
			fyne.Do(func() {
				dialog.ShowError(err, s.window)
			})
		}
	}()
}

func (s *appState) disconnect() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// handleConnect toggles the telemetry stream.
func handleConnect(state *appState) {
	if state.cancel != nil {
		state.disconnect()
		state.status.SetText("Disconnected")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	state.cancel = cancel
	state.client = NewClient(state.server, state.token)

	go state.client.Consume(ctx,
		func(payload map[string]any) {
			fyne.Do(func() {
				state.applyTelemetry(payload)
			})
		},
		func(msg string) {
			fyne.Do(func() {
				state.status.SetText(msg)
			})
		},
	)
}

// applyTelemetry updates the readout line and the chart from one payload.
func (s *appState) applyTelemetry(payload map[string]any) {
	if payload["type"] != "telemetry" {
		return
	}

	var p chart.Point
	p.Timestamp = time.Now()

	tempText := "T=— °C"
	if temps, ok := payload["temps"].([]any); ok {
		for i, v := range temps {
			if i >= chart.NumTraces {
				break
			}
			if f, ok := v.(float64); ok {
				t := f
				p.Temps[i] = &t
			}
		}
	}
	if tc, ok := payload["tC"].(float64); ok {
		tempText = fmt.Sprintf("T=%.2f °C", tc)
	}

	valveText := "valve=CLOSED"
	if v, ok := payload["valve"].(float64); ok && v != 0 {
		p.ValveOpen = true
		valveText = "valve=OPEN"
	}

	modeText := "mode=—"
	if m, ok := payload["mode"].(string); ok && m != "" {
		modeText = "mode=" + m
	}

	s.readout.SetText(fmt.Sprintf("%s | %s | %s", tempText, valveText, modeText))
	s.chartWidget.Push(p)
}
