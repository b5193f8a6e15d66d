package internal

import (
	"bufio"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID creates a new UUID.
func GenerateUUID() string {
	return uuid.New().String()
}

// newDocID mimics the 20-character auto ids Firestore hands out.
func newDocID() string {
	return strings.ReplaceAll(GenerateUUID(), "-", "")[:20]
}

func GetHostname() string {
	name, _ := os.Hostname()
	return name
}

// GetOSVersion reads PRETTY_NAME from os-release, falling back to GOOS/GOARCH.
func GetOSVersion() string {
	return osVersion("/etc/os-release")
}

func osVersion(path string) string {
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		s := bufio.NewScanner(f)
		for s.Scan() {
			line := s.Text()
			if strings.HasPrefix(line, "PRETTY_NAME=") {
				return strings.Trim(line[len("PRETTY_NAME="):], "\"")
			}
		}
	}
	return runtime.GOOS + " " + runtime.GOARCH
}
