package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sceneforge/raw2gltf/config"
	"github.com/sceneforge/raw2gltf/gltfexport"
	"github.com/sceneforge/raw2gltf/raw"
)

func main() {
	var in, out, configPath, encoding, indexWidth string
	var binaryOut, noPBR, unlit, lights, noSparse bool
	var morphNormals, morphTangents, userProperties bool
	var draco bool
	var dracoLevel int
	var verbose, listEncodings bool
	flag.StringVar(&in, "in", "", "Input scene file (JSON scene graph)")
	flag.StringVar(&out, "out", "", "Output file (defaults to input name with .gltf/.glb extension)")
	flag.StringVar(&configPath, "config", "", "Path to YAML options file")
	flag.StringVar(&encoding, "encoding", "", "Codepage of legacy entity names (see -list-encodings)")
	flag.BoolVar(&listEncodings, "list-encodings", false, "Print supported name encodings and exit")
	flag.StringVar(&indexWidth, "long-indices", "auto", "32-bit index policy: auto, never, always")
	flag.BoolVar(&binaryOut, "binary", false, "Write a single binary container instead of JSON")
	flag.BoolVar(&noPBR, "no-pbr", false, "Skip metallic-roughness material synthesis")
	flag.BoolVar(&unlit, "unlit", false, "Emit unlit materials (KHR_materials_unlit)")
	flag.BoolVar(&lights, "lights", false, "Emit punctual lights (KHR_lights_punctual)")
	flag.BoolVar(&noSparse, "no-sparse", false, "Encode blend shapes densely instead of sparsely")
	flag.BoolVar(&morphNormals, "morph-normals", false, "Include normal deltas in blend shapes")
	flag.BoolVar(&morphTangents, "morph-tangents", false, "Include tangent deltas in blend shapes")
	flag.BoolVar(&userProperties, "user-properties", false, "Copy node/material user properties into extras")
	flag.BoolVar(&draco, "draco", false, "Compress geometry (requires a compression backend)")
	flag.IntVar(&dracoLevel, "draco-level", 7, "Compression level 0-10")
	flag.BoolVar(&verbose, "verbose", false, "Log synthesis details")
	flag.Parse()

	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { flagsSet[f.Name] = true })

	if listEncodings {
		for _, name := range config.ListEncodings() {
			fmt.Println(name)
		}
		return
	}
	if in == "" {
		flag.PrintDefaults()
		return
	}

	if encoding != "" {
		if err := config.SetEncoding(encoding); err != nil {
			log.Fatal(err)
		}
	}

	var opts *config.Options
	var err error
	if configPath != "" {
		opts, err = config.LoadOptions(configPath)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		opts = config.DefaultOptions()
	}

	if flagsSet["long-indices"] || opts.IndexWidthName == "" {
		if opts.IndexWidth, err = config.ParseIndexWidth(indexWidth); err != nil {
			log.Fatal(err)
		}
	}
	opts.UsePBRMetRough = opts.UsePBRMetRough && !noPBR
	opts.UseKHRMatUnlit = opts.UseKHRMatUnlit || unlit
	opts.UseKHRLightsPunctual = opts.UseKHRLightsPunctual || lights
	opts.DisableSparseBlendShapes = opts.DisableSparseBlendShapes || noSparse
	opts.UseBlendShapeNormals = opts.UseBlendShapeNormals || morphNormals
	opts.UseBlendShapeTangents = opts.UseBlendShapeTangents || morphTangents
	opts.EnableUserProperties = opts.EnableUserProperties || userProperties
	opts.Draco.Enabled = opts.Draco.Enabled || draco
	if flagsSet["draco-level"] {
		opts.Draco.CompressionLevel = dracoLevel
	}
	opts.OutputBinary = opts.OutputBinary || binaryOut
	opts.Verbose = opts.Verbose || verbose

	if out == "" {
		ext := ".gltf"
		if opts.OutputBinary {
			ext = ".glb"
		}
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ext
	}

	model, err := raw.LoadModel(in)
	if err != nil {
		log.Fatal(err)
	}

	doc, err := gltfexport.NewExporter(model, opts, nil, nil).Export()
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if err := gltfexport.WriteDocument(f, doc, opts.OutputBinary); err != nil {
		log.Fatal(err)
	}
	if verbose {
		log.Printf("Wrote %s", out)
	}
}
