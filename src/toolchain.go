package src

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/avfs/avfs"
	"github.com/samber/lo"
)

// --- System Tools ---

// Checks whether the Folder exists, if not, the Folder is created
func checkFolder(path string) (err error) {
	_, err = os.Stat(filepath.Dir(path))

	if os.IsNotExist(err) {
		// Folder does not exist, will now be created
		err = os.MkdirAll(getPlatformPath(path), 0755)
		if err == nil {
			showDebug(fmt.Sprintf("Create Folder:%s", path), 1)
		}
		return err
	}

	return nil
}

// fsIsNotExistErr : Returns true whether the <err> is known to report that a file or directory does not exist,
// including virtual file system errors
func fsIsNotExistErr(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, avfs.ErrWinPathNotFound) ||
		errors.Is(err, avfs.ErrNoSuchFileOrDir) ||
		errors.Is(err, avfs.ErrWinFileNotFound)
}

// Checks whether the File exists in the Filesystem
func checkFile(filename string) error {
	fi, err := os.Stat(getPlatformFile(filename))
	if err != nil {
		return err
	}

	if fi.IsDir() {
		return fmt.Errorf("%s: is a folder", filename)
	}

	return nil
}

// GetUserHomeDirectory : User Home Directory
func GetUserHomeDirectory() (userHomeDirectory string) {
	usr, err := user.Current()

	if err != nil {
		for _, name := range []string{"HOME", "USERPROFILE"} {
			if dir := os.Getenv(name); dir != "" {
				userHomeDirectory = dir
				break
			}
		}
	} else {
		userHomeDirectory = usr.HomeDir
	}
	return
}

// Checks File Permissions
func checkFilePermission(dir string) (err error) {
	var filename = filepath.Join(dir, "permission.test")

	err = os.WriteFile(filename, []byte(""), 0644)
	if err == nil {
		err = os.RemoveAll(filename)
	}
	return
}

// Generate folder path for the running OS
func getPlatformPath(path string) string {
	return filepath.Dir(path) + string(os.PathSeparator)
}

// Generate File Path for the running OS
func getPlatformFile(filename string) (osFilePath string) {
	path, file := filepath.Split(filename)
	var newPath = filepath.Dir(path)
	osFilePath = newPath + string(os.PathSeparator) + file
	return
}

// JSON
func mapToJSON(tmpMap any) string {
	jsonString, err := json.MarshalIndent(tmpMap, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(jsonString)
}

func saveMapToJSONFile(file string, tmpMap any) error {
	jsonString, err := json.MarshalIndent(tmpMap, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(getPlatformFile(file), jsonString, 0644)
}

func loadJSONFileToMap(file string) (tmpMap map[string]any, err error) {
	f, err := os.Open(getPlatformFile(file))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(string(content))) == 0 {
		return make(map[string]any), nil
	}

	err = json.Unmarshal(content, &tmpMap)
	if tmpMap == nil {
		tmpMap = make(map[string]any)
	}
	return
}

func writeByteToFile(file string, data []byte) (err error) {
	return os.WriteFile(getPlatformFile(file), data, 0644)
}

// Network

// netInterfaceAddrs is swapped out in tests.
var netInterfaceAddrs = net.InterfaceAddrs

func resolveHostIP() (err error) {
	netInterfaceAddresses, err := netInterfaceAddrs()
	if err != nil {
		return
	}

	System.IPAddressesV4 = nil
	System.IPAddressesV4Host = nil
	System.IPAddressesV6 = nil

	for _, netInterfaceAddress := range netInterfaceAddresses {
		networkIP, ok := netInterfaceAddress.(*net.IPNet)
		if !ok {
			continue
		}

		var ip = networkIP.IP.String()

		if networkIP.IP.To4() != nil {
			System.IPAddressesV4 = append(System.IPAddressesV4, ip)

			if !networkIP.IP.IsLoopback() && !networkIP.IP.IsLinkLocalUnicast() {
				System.IPAddressesV4Host = append(System.IPAddressesV4Host, ip)
			}
		} else {
			System.IPAddressesV6 = append(System.IPAddressesV6, ip)
		}
	}

	// If IP previously set in settings (including the default, empty) is not available anymore
	if len(System.IPAddressesV4Host) > 0 && !lo.Contains(System.IPAddressesV4Host, Settings.HostIP) {
		Settings.HostIP = System.IPAddressesV4Host[0]
	}

	if len(Settings.HostIP) == 0 {
		switch {
		case len(System.IPAddressesV4) > 0:
			Settings.HostIP = System.IPAddressesV4[0]
		case len(System.IPAddressesV6) > 0:
			Settings.HostIP = System.IPAddressesV6[0]
		default:
			log.Printf("[%s] [WARNING] No IP address found, defaulting to 127.0.0.1", System.Name)
			Settings.HostIP = "127.0.0.1"
		}
	}

	System.Hostname, err = os.Hostname()
	return
}

// Miscellaneous
func randomString(n int) string {
	const alphanum = "AB1CD2EF3GH4IJ5KL6MN7OP8QR9ST0UVWXYZ"

	var bytes = make([]byte, n)

	if _, err := rand.Read(bytes); err != nil {
		log.Printf("Error reading random bytes for randomString: %v", err)
		return strings.Repeat("0", n)
	}

	for i, b := range bytes {
		bytes[i] = alphanum[b%byte(len(alphanum))]
	}
	return string(bytes)
}
