//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/pressroom/assets"
	"github.com/MeKo-Tech/pressroom/internal/filter"
	"github.com/MeKo-Tech/pressroom/internal/scene"
)

// store backs the browser design canvas; the page owns exactly one.
var store = scene.NewStore()

func errorResult(err error) interface{} {
	return map[string]interface{}{"error": err.Error()}
}

func jsonResult(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err)
	}
	return string(data)
}

// buildFilter turns filter settings JSON into the CSS filter expression the
// preview applies, so the browser and the server agree on every term.
func buildFilter(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult(fmt.Errorf("missing arguments"))
	}

	s := filter.DefaultSettings()
	if err := json.Unmarshal([]byte(args[0].String()), &s); err != nil {
		return errorResult(fmt.Errorf("failed to parse filter settings: %w", err))
	}
	return s.Clamped().String()
}

// sceneCommand runs one store command and returns the new state as JSON.
func sceneCommand(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult(fmt.Errorf("missing arguments"))
	}

	var cmd scene.Command
	if err := json.Unmarshal([]byte(args[0].String()), &cmd); err != nil {
		return errorResult(fmt.Errorf("failed to parse command: %w", err))
	}
	state, err := scene.Dispatch(store, cmd)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(state)
}

// starterTemplates returns the bundled templates as a JSON array.
func starterTemplates(this js.Value, args []js.Value) interface{} {
	tpls, err := assets.Templates()
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(tpls)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("pressroomBuildFilter", js.FuncOf(buildFilter))
	js.Global().Set("pressroomScene", js.FuncOf(sceneCommand))
	js.Global().Set("pressroomTemplates", js.FuncOf(starterTemplates))

	fmt.Println("Pressroom WASM module loaded")
	<-c
}
