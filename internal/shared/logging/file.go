package logging

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrNoLogFile is returned when the log file has not been created yet.
var ErrNoLogFile = errors.New("logging: log file not found")

// Tail returns up to n trailing lines of the file at path. n <= 0 returns
// every line.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoLogFile
		}
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("logging: read %s: %w", path, err)
	}
	return lines, nil
}

// ReadAll returns the full log content.
func ReadAll(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoLogFile
		}
		return "", fmt.Errorf("logging: read %s: %w", path, err)
	}
	return string(data), nil
}

// Archive writes a zip archive containing the log file to w.
func Archive(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNoLogFile
		}
		return fmt.Errorf("logging: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("logging: stat %s: %w", path, err)
	}

	zw := zip.NewWriter(w)
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("logging: zip header: %w", err)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate
	header.Modified = info.ModTime().UTC()
	if header.Modified.IsZero() {
		header.Modified = time.Now().UTC()
	}

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("logging: zip entry: %w", err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("logging: zip copy: %w", err)
	}
	return zw.Close()
}
