package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// readData parses whitespace separated "x y" columns. Blank lines and lines
// starting with '#' are skipped; extra columns are ignored.
func readData(r io.Reader) (x, y []float64, err error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("line %d: want 2 columns, got %d", lineNo, len(fields))
		}
		var vals [2]float64
		for i := range vals {
			vals[i], err = strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		x = append(x, vals[0])
		y = append(y, vals[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func parseFile(file string) (x, y []float64, err error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	x, y, err = readData(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", file, err)
	}
	return x, y, nil
}

// cut drops low leading and high trailing observations.
func cut(x, y []float64, low, high uint) ([]float64, []float64, error) {
	n := uint(len(x))
	if low >= n || high >= n-low {
		return nil, nil, fmt.Errorf("cannot cut %d+%d points from %d observations", low, high, len(x))
	}
	end := len(x) - int(high)
	return x[low:end], y[low:end], nil
}
