package main

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// showSettingsDialog displays the settings dialog: connection parameters and
// the rig control setpoints.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createServerTab(state),
		createControlTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(500, 350))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(500, 350))
	d.Show()
}

// createServerTab creates the supervisor connection tab.
func createServerTab(state *appState) *container.TabItem {
	serverEntry := widget.NewEntry()
	serverEntry.SetText(state.server)

	tokenEntry := widget.NewPasswordEntry()
	tokenEntry.SetText(state.token)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Server URL", Widget: serverEntry},
			{Text: "Auth Token", Widget: tokenEntry},
		},
		OnSubmit: func() {
			state.server = serverEntry.Text
			state.token = tokenEntry.Text
			state.client = NewClient(state.server, state.token)
			// An active stream keeps its old address until reconnected.
			if state.cancel != nil {
				state.status.SetText("Settings applied; reconnect to use them")
			}
		},
		SubmitText: "Apply",
	}

	return container.NewTabItem("Server", form)
}

// createControlTab creates the rig control tab. Values are sent to the rig as
// console commands through the supervisor.
func createControlTab(state *appState) *container.TabItem {
	setpointEntry := widget.NewEntry()
	setpointEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Control.SetpointC))

	pumpHzEntry := widget.NewEntry()
	pumpHzEntry.SetPlaceHolder("Hz")

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Chart setpoint (°C)", Widget: setpointEntry},
			{Text: "Pump frequency (Hz)", Widget: pumpHzEntry},
		},
		OnSubmit: func() {
			if sp, err := strconv.ParseFloat(setpointEntry.Text, 64); err == nil {
				state.chartWidget.SetSetpoint(sp)
			}
			if pumpHzEntry.Text != "" {
				if hz, err := strconv.ParseFloat(pumpHzEntry.Text, 64); err == nil {
					state.submit(fmt.Sprintf("PUMP HZ %.2f", hz))
				} else {
					dialog.ShowError(fmt.Errorf("invalid frequency: %q", pumpHzEntry.Text), state.window)
				}
			}
		},
		SubmitText: "Apply",
	}

	return container.NewTabItem("Control", form)
}
