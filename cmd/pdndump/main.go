// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/go-pdn/pdn"
)

var wantPixels bool

func prettyPrint(iface interface{}) string {
	var out bytes.Buffer
	buf, _ := json.Marshal(iface)
	if err := json.Indent(&out, buf, "", "\t"); err != nil {
		return string(buf)
	}
	return out.String()
}

// propertyBagView turns a *pdn.PropertyBag into a plain map so it marshals
// through encoding/json without exporting the bag's internals.
func propertyBagView(bag *pdn.PropertyBag) map[string]interface{} {
	if bag == nil {
		return nil
	}
	keys := bag.Keys()
	sort.Strings(keys)
	view := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		v, _ := bag.Get(k)
		view[k] = v
	}
	return view
}

type layerSummary struct {
	Name       string                 `json:"name"`
	Width      uint32                 `json:"width"`
	Height     uint32                 `json:"height"`
	Stride     uint32                 `json:"stride"`
	PixelBytes int                    `json:"pixel_bytes"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

func summarizeLayer(l *pdn.Layer) layerSummary {
	s := layerSummary{
		Width:      l.Width,
		Height:     l.Height,
		Name:       l.Properties.Name(),
		Properties: propertyBagView(l.Properties),
	}
	if l.Surface != nil {
		s.Stride = l.Surface.Stride
		s.PixelBytes = len(l.Surface.Data)
	}
	return s
}

func info(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	doc, err := pdn.Open(filePath, nil)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filePath, err)
	}

	summary := struct {
		Width      uint32 `json:"width"`
		Height     uint32 `json:"height"`
		LayerCount int    `json:"layer_count"`
	}{Width: doc.Width, Height: doc.Height, LayerCount: len(doc.Layers)}

	fmt.Println(prettyPrint(summary))
	return nil
}

func layers(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	opts := &pdn.Options{DisableDeferredDecode: !wantPixels}
	doc, err := pdn.Open(filePath, opts)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filePath, err)
	}

	summaries := make([]layerSummary, len(doc.Layers))
	for i, l := range doc.Layers {
		summaries[i] = summarizeLayer(l)
	}
	fmt.Println(prettyPrint(summaries))
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "pdndump",
		Short: "A Paint.NET .pdn file reader",
		Long:  "pdndump inspects the structure of Paint.NET .pdn documents",
	}

	infoCmd := &cobra.Command{
		Use:   "info <file.pdn>",
		Short: "Print the document's canvas size and layer count",
		Args:  cobra.ExactArgs(1),
		RunE:  info,
	}

	layersCmd := &cobra.Command{
		Use:   "layers <file.pdn>",
		Short: "Print a summary of each layer",
		Args:  cobra.ExactArgs(1),
		RunE:  layers,
	}
	layersCmd.Flags().BoolVar(&wantPixels, "pixels", false, "decode pixel data instead of skipping it")

	rootCmd.AddCommand(infoCmd, layersCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
