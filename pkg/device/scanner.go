package device

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxScanIndex bounds the fallback /dev/tapascoN scan.
const maxScanIndex = 16

// sysClassDir is where a loaded tlkm driver registers its device class.
const sysClassDir = "/sys/class/tapasco"

// Info describes one discovered device node, without opening it.
type Info struct {
	Path  string
	Index int
}

// Scan enumerates tapasco device nodes. It prefers /sys/class/tapasco (which
// the driver populates only for devices it has actually bound), falling
// back to a plain /dev/tapasco{0..15} probe when that class directory cannot
// be read or lists no tapasco entries.
func Scan() ([]Info, error) {
	infos, err := scanSysClass()
	if err == nil && len(infos) > 0 {
		return infos, nil
	}
	return scanDevFallback()
}

func scanSysClass() ([]Info, error) {
	entries, err := os.ReadDir(sysClassDir)
	if err != nil {
		return nil, err
	}

	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		idx, err := indexFromName(name)
		if err != nil {
			continue
		}
		infos = append(infos, Info{Path: filepath.Join("/dev", name), Index: idx})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Index < infos[j].Index })
	return infos, nil
}

func scanDevFallback() ([]Info, error) {
	var infos []Info
	for i := 0; i < maxScanIndex; i++ {
		path := fmt.Sprintf("/dev/tapasco%d", i)
		if _, err := os.Stat(path); err == nil {
			infos = append(infos, Info{Path: path, Index: i})
		}
	}
	if len(infos) == 0 {
		return nil, ErrNoDevices
	}
	return infos, nil
}

func indexFromName(name string) (int, error) {
	suffix := strings.TrimPrefix(name, "tapasco")
	if suffix == name {
		return 0, fmt.Errorf("unexpected device class entry %q", name)
	}
	var idx int
	if _, err := fmt.Sscanf(suffix, "%d", &idx); err != nil {
		return 0, err
	}
	return idx, nil
}
