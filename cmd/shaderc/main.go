// Command shaderc validates the embedded WGSL shaders and writes their
// SPIR-V translations.
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gpulife/internal/logging"
	"gpulife/internal/shaders"

	"go.uber.org/zap"
)

func main() {
	out := flag.String("out", "", "directory for .spv files; empty only validates")
	workgroup := flag.Int("workgroup", 8, "compute workgroup edge length")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log, err := logging.New(logging.Config{LogLevel: *level, ServiceName: "shaderc"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(*out, *workgroup, log); err != nil {
		log.Error("shaderc failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(out string, workgroup int, log *zap.Logger) error {
	sources, err := shaders.WGSLSources(workgroup)
	if err != nil {
		return err
	}
	if out != "" {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
	}
	for _, src := range sources {
		words, err := shaders.CompileSPIRV(src.WGSL)
		if err != nil {
			return fmt.Errorf("%s: %w", src.Name, err)
		}
		log.Info("compiled", zap.String("shader", src.Name), zap.Int("words", len(words)))
		if out == "" {
			continue
		}
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, words); err != nil {
			return err
		}
		path := filepath.Join(out, src.Name+".spv")
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return err
		}
		log.Debug("wrote", zap.String("path", path))
	}
	return nil
}
