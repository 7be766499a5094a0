// glbsplit is a CLI utility that splits glTF containers into per-material
// assets and extracts embedded textures.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/glbsplit/internal/config"
	"github.com/Faultbox/glbsplit/internal/logger"
	"github.com/Faultbox/glbsplit/pkg/extract"
	"github.com/Faultbox/glbsplit/pkg/gltf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "split", "s":
		cmdSplit(args)
	case "textures", "tex":
		cmdTextures(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`glbsplit - per-material glTF container splitter

Usage:
  glbsplit <command> [options]

Commands:
  info <file.glb|.gltf>               Show document and per-material statistics
  split [-o dir] <file.glb|.gltf>     Write one solid-color GLB per material
  textures [-o dir] <file.glb|.gltf>  Write embedded images to disk

Examples:
  glbsplit info model.glb
  glbsplit split -o ./out model.glb
  glbsplit textures -o ./textures scene.gltf`)
}

// setupLogging initializes the global logger from config plus the -debug flag.
func setupLogging(cfg *config.Config, debug bool) {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}

// readContainer loads a container, selecting binary or text decoding by
// file extension.
func readContainer(path string) (*gltf.Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".glb") {
		c, warnings, err := gltf.DecodeGLB(data)
		for _, w := range warnings {
			logger.Warn(w)
		}
		return c, err
	}
	return gltf.DecodeDocument(data)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to config file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbsplit info <file.glb|.gltf>")
		os.Exit(1)
	}

	cfg := loadConfig(*cfgPath)
	setupLogging(cfg, *debug)
	defer logger.Sync()

	c, err := readContainer(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	doc := c.Document

	fmt.Printf("File:        %s\n", fs.Arg(0))
	fmt.Printf("Materials:   %d\n", len(doc.Materials))
	fmt.Printf("Meshes:      %d\n", len(doc.Meshes))
	fmt.Printf("Nodes:       %d\n", len(doc.Nodes))
	fmt.Printf("Scenes:      %d\n", len(doc.Scenes))
	fmt.Printf("Accessors:   %d\n", len(doc.Accessors))
	fmt.Printf("BufferViews: %d\n", len(doc.BufferViews))
	fmt.Printf("Textures:    %d\n", len(doc.Textures))
	fmt.Printf("Binary:      %d bytes\n", len(c.Binary))
	fmt.Println()

	if len(doc.Materials) == 0 {
		fmt.Println("No materials.")
		return
	}

	fmt.Println("Materials:")
	for mi := range doc.Materials {
		name := extract.MaterialName(doc, mi)
		prims, verts := materialUsage(doc, mi)
		fmt.Printf("  [%d] %-24s %d primitives, %d vertices\n", mi, name, prims, verts)
	}
}

// materialUsage counts primitives using a material and the vertices they
// draw (from the POSITION accessor's count, when present).
func materialUsage(doc *gltf.Document, material int) (primitives, vertices int) {
	for mi := range doc.Meshes {
		for pi := range doc.Meshes[mi].Primitives {
			p := &doc.Meshes[mi].Primitives[pi]
			if p.Material == nil || *p.Material != material {
				continue
			}
			primitives++
			if ai, ok := p.Attributes["POSITION"]; ok && ai >= 0 && ai < len(doc.Accessors) {
				vertices += doc.Accessors[ai].Count
			}
		}
	}
	return primitives, vertices
}

func cmdSplit(args []string) {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	outDir := fs.String("o", "", "Output directory (default from config)")
	cfgPath := fs.String("config", "", "Path to config file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbsplit split [-o dir] <file.glb|.gltf>")
		os.Exit(1)
	}

	cfg := loadConfig(*cfgPath)
	setupLogging(cfg, *debug)
	defer logger.Sync()

	dir := cfg.Output.Dir
	if *outDir != "" {
		dir = *outDir
	}

	c, err := readContainer(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	assets, err := extract.Materials(c, logger.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	written := 0
	names := make(map[string]bool)
	for _, asset := range assets {
		if asset.GLB == nil {
			fmt.Fprintf(os.Stderr, "Skipped material %d (%s): extraction failed\n", asset.Index, asset.Name)
			continue
		}

		base := extract.AssetFileName(asset.Name, asset.Index)
		if names[base] {
			base = fmt.Sprintf("%s_%d", base, asset.Index)
		}
		names[base] = true

		outputPath := filepath.Join(dir, base+".glb")
		if err := os.WriteFile(outputPath, asset.GLB, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
			continue
		}

		fmt.Printf("Wrote: %s (%d bytes, %d primitives)\n", outputPath, len(asset.GLB), asset.PrimitiveCount)
		written++
	}

	fmt.Fprintf(os.Stderr, "\nWrote %d of %d materials\n", written, len(assets))
}

func cmdTextures(args []string) {
	fs := flag.NewFlagSet("textures", flag.ExitOnError)
	outDir := fs.String("o", "", "Output directory (default from config)")
	cfgPath := fs.String("config", "", "Path to config file")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: glbsplit textures [-o dir] <file.glb|.gltf>")
		os.Exit(1)
	}

	cfg := loadConfig(*cfgPath)
	setupLogging(cfg, *debug)
	defer logger.Sync()

	dir := cfg.Output.Dir
	if *outDir != "" {
		dir = *outDir
	}

	c, err := readContainer(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	assets := extract.Textures(c, logger.Log)
	if len(assets) == 0 {
		fmt.Fprintln(os.Stderr, "No embedded images found")
		return
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	for i, asset := range assets {
		base := extract.AssetFileName(asset.Name, i)
		outputPath := filepath.Join(dir, base+mimeExt(asset.MIMEType))
		if err := os.WriteFile(outputPath, asset.Data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
			continue
		}
		fmt.Printf("Wrote: %s (%d bytes)\n", outputPath, len(asset.Data))
	}
}

// mimeExt maps an image MIME type to a file extension.
func mimeExt(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/ktx2":
		return ".ktx2"
	default:
		return ".bin"
	}
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
