// calculate_sha256_of_setup prints the digests a RemoteStore checks published setup
// files against.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	dir := "./pp"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalln(err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Fatalln(err)
		}
		hasher := sha256.New()
		if _, err := io.Copy(hasher, f); err != nil {
			log.Fatalln(err)
		}
		f.Close()
		fmt.Println("sha256", "(", e.Name(), ")", "=", hex.EncodeToString(hasher.Sum(nil)))
	}
}
