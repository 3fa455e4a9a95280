package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/mlaass/globimap"
	"github.com/mlaass/globimap/internal/config"
)

func run(cfg config.Config, queries []string, summary bool, in io.Reader, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Mode == config.ModeBitmap {
		return runBitmap(cfg, queries, summary, in, out)
	}
	return runSketch(cfg, queries, summary, in, out)
}

// eachLine calls fn with the fields of every non-blank line of in.
func eachLine(in io.Reader, fn func(n int, fields []string) error) (int, error) {
	scanner := bufio.NewScanner(in)
	n := 0
	for scanner.Scan() {
		n++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := fn(n, fields); err != nil {
			return n, err
		}
	}
	return n, scanner.Err()
}

func runSketch(cfg config.Config, queries []string, summary bool, in io.Reader, out io.Writer) error {
	opts, err := cfg.SketchOptions()
	if err != nil {
		return err
	}
	s := globimap.New(opts...)
	if err := s.Configure(cfg.Depth, cfg.Width); err != nil {
		return err
	}
	klog.V(1).InfoS("configured sketch", "depth", s.Depth(), "width", s.Width(), "hash", cfg.Hash)

	lines, err := eachLine(in, func(n int, fields []string) error {
		amount := uint64(1)
		switch len(fields) {
		case 1:
		case 2:
			v, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return fmt.Errorf("line %d: amount: %w", n, err)
			}
			amount = v
		default:
			return fmt.Errorf("line %d: expected \"item [amount]\", got %d fields", n, len(fields))
		}
		return s.Add([]byte(fields[0]), amount)
	})
	if err != nil {
		return err
	}
	klog.InfoS("counted items", "lines", lines, "total", s.Total())

	for _, q := range queries {
		v, err := s.Estimate([]byte(q))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%d\n", q, v)
	}
	if summary {
		js, err := s.Summary()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, js)
	}
	return nil
}

func parsePoint(x, y string) (uint64, uint64, error) {
	px, err := strconv.ParseUint(x, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	py, err := strconv.ParseUint(y, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return px, py, nil
}

func runBitmap(cfg config.Config, queries []string, summary bool, in io.Reader, out io.Writer) error {
	b := globimap.NewBitmap()
	if err := b.Configure(cfg.Bitmap.Hashes, cfg.Bitmap.LogSize); err != nil {
		return err
	}
	klog.V(1).InfoS("configured bitmap", "hashes", b.K(), "bits", b.Size())

	lines, err := eachLine(in, func(n int, fields []string) error {
		if len(fields) != 2 {
			return fmt.Errorf("line %d: expected \"x y\", got %d fields", n, len(fields))
		}
		x, y, err := parsePoint(fields[0], fields[1])
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		return b.Put(x, y)
	})
	if err != nil {
		return err
	}
	ones, foz := b.Stats()
	klog.InfoS("mapped points", "lines", lines, "ones", ones, "foz", foz)

	for _, q := range queries {
		xy := strings.SplitN(q, ":", 2)
		if len(xy) != 2 {
			return fmt.Errorf("query %q: expected x:y", q)
		}
		x, y, err := parsePoint(xy[0], xy[1])
		if err != nil {
			return fmt.Errorf("query %q: %w", q, err)
		}
		set, err := b.Get(x, y)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%t\n", q, set)
	}
	if summary {
		js, err := b.Summary()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, js)
	}
	return nil
}
