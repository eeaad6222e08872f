// Package artifact loads compiled contract artifacts (ABI and creation bytecode) produced by
// hardhat or foundry style toolchains.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrNotDeployable    = errors.New("artifact has no creation bytecode")
)

type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

type file struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

type Registry interface {
	// Lookup returns the deployable artifact of the given contract name.
	Lookup(name string) (Artifact, error)

	// Register adds or replaces an artifact.
	Register(artifact Artifact)

	// Names lists the registered contract names.
	Names() []string
}

type registry struct {
	mu        *sync.RWMutex
	artifacts map[string]Artifact
}

func NewRegistry() Registry {
	return &registry{
		mu:        new(sync.RWMutex),
		artifacts: map[string]Artifact{},
	}
}

// LoadDir walks dir and registers every artifact file found in it. Debug files (*.dbg.json)
// and json files which are not artifacts are ignored.
func LoadDir(dir string) (Registry, error) {
	reg := NewRegistry()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".dbg.json") {
			return nil
		}
		artifact, ok, err := ParseFile(path)
		if err != nil {
			return err
		}
		if ok {
			reg.Register(artifact)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ParseFile decodes the artifact stored at path. Foundry artifacts carry no contract name, they
// are named after the file instead (out/TokenSwap.sol/TokenSwap.json is TokenSwap).
func ParseFile(path string) (Artifact, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, false, err
	}
	artifact, ok, err := parse(data, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err != nil {
		return Artifact{}, false, fmt.Errorf("failed to parse %v: %w", path, err)
	}
	return artifact, ok, nil
}

// Parse decodes a single artifact. The bool is false when data is valid json but not a named
// artifact.
func Parse(data []byte) (Artifact, bool, error) {
	return parse(data, "")
}

func parse(data []byte, fallbackName string) (Artifact, bool, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return Artifact{}, false, nil
	}
	if len(f.ABI) == 0 {
		return Artifact{}, false, nil
	}
	if f.ContractName == "" {
		// Without a name only files with a bytecode section count as artifacts.
		if fallbackName == "" || len(f.Bytecode) == 0 {
			return Artifact{}, false, nil
		}
		f.ContractName = fallbackName
	}

	parsed, err := abi.JSON(strings.NewReader(string(f.ABI)))
	if err != nil {
		return Artifact{}, false, err
	}
	bytecode, err := decodeBytecode(f.Bytecode)
	if err != nil {
		return Artifact{}, false, err
	}
	return Artifact{
		Name:     f.ContractName,
		ABI:      parsed,
		Bytecode: bytecode,
	}, true, nil
}

// decodeBytecode accepts both the hardhat form ("0x...") and the foundry form
// ({"object": "0x..."}).
func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("unknown bytecode format")
		}
		code = obj.Object
	}
	if code == "" || code == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	return hexutil.Decode(code)
}

func (reg *registry) Lookup(name string) (Artifact, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	artifact, ok := reg.artifacts[name]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %v", ErrArtifactNotFound, name)
	}
	if len(artifact.Bytecode) == 0 {
		return Artifact{}, fmt.Errorf("%w: %v", ErrNotDeployable, name)
	}
	return artifact, nil
}

func (reg *registry) Register(artifact Artifact) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.artifacts[artifact.Name] = artifact
}

func (reg *registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	names := make([]string, 0, len(reg.artifacts))
	for name := range reg.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
