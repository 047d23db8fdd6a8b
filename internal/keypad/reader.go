package keypad

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"jukebox/internal/config"
)

// Reader samples the current keypad code from the hardware input lines.
type Reader interface {
	ReadCode(ctx context.Context) (Code, error)
}

// gpioReader reads the exported sysfs value files for the four configured
// lines. Each poll takes several consecutive samples per line and keeps the
// majority value to ride out electrical bounce.
type gpioReader struct {
	valuePaths []string
	samples    int
}

// NewGPIOReader builds a Reader over the sysfs GPIO lines named in cfg.
func NewGPIOReader(cfg *config.Config) Reader {
	paths := make([]string, 0, len(cfg.Keypad.Lines))
	for _, line := range cfg.Keypad.Lines {
		paths = append(paths, filepath.Join(cfg.Keypad.GPIOBaseDir, fmt.Sprintf("gpio%d", line), "value"))
	}
	samples := cfg.Keypad.SamplesPerRead
	if samples < 1 {
		samples = 1
	}
	return &gpioReader{valuePaths: paths, samples: samples}
}

func (r *gpioReader) ReadCode(ctx context.Context) (Code, error) {
	var code Code
	for bit, path := range r.valuePaths {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		high, err := r.readLine(path)
		if err != nil {
			return 0, err
		}
		if high {
			code |= 1 << bit
		}
	}
	return code, nil
}

func (r *gpioReader) readLine(path string) (bool, error) {
	highVotes := 0
	for i := 0; i < r.samples; i++ {
		data, err := os.ReadFile(path)
		if err != nil {
			return false, fmt.Errorf("read gpio line %s: %w", path, err)
		}
		value, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return false, fmt.Errorf("parse gpio line %s: %w", path, err)
		}
		if value != 0 {
			highVotes++
		}
	}
	return highVotes*2 > r.samples, nil
}
