//go:build windows

package registry

import (
	"context"
	stderrors "errors"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/arthur-debert/relocator/pkg/errors"
	"github.com/arthur-debert/relocator/pkg/logging"
	"github.com/arthur-debert/relocator/pkg/types"
)

// windowsHive reads and writes the system registry
type windowsHive struct {
	roots []string
}

// NewSystemHive returns the Windows registry restricted to roots
func NewSystemHive(roots []string) Hive {
	if len(roots) == 0 {
		roots = DefaultRoots
	}
	return &windowsHive{roots: append([]string(nil), roots...)}
}

var rootKeys = map[string]registry.Key{
	"HKLM":               registry.LOCAL_MACHINE,
	"HKEY_LOCAL_MACHINE": registry.LOCAL_MACHINE,
	"HKCU":               registry.CURRENT_USER,
	"HKEY_CURRENT_USER":  registry.CURRENT_USER,
	"HKCR":               registry.CLASSES_ROOT,
	"HKEY_CLASSES_ROOT":  registry.CLASSES_ROOT,
	"HKU":                registry.USERS,
	"HKEY_USERS":         registry.USERS,
}

// splitKey turns HKLM\SOFTWARE\... into the predefined key and subpath
func splitKey(keyPath string) (registry.Key, string, error) {
	head, rest, _ := strings.Cut(strings.Trim(keyPath, `\`), `\`)
	root, ok := rootKeys[strings.ToUpper(head)]
	if !ok {
		return 0, "", errors.Newf(errors.ErrInvalidInput, "unknown registry root in %s", keyPath)
	}
	return root, rest, nil
}

func (h *windowsHive) Roots() []string {
	return append([]string(nil), h.roots...)
}

func (h *windowsHive) Walk(ctx context.Context, root string, maxDepth int, fn WalkFunc) error {
	base, sub, err := splitKey(root)
	if err != nil {
		return err
	}
	return h.walk(ctx, base, sub, strings.Trim(root, `\`), maxDepth, fn)
}

func (h *windowsHive) walk(ctx context.Context, base registry.Key, sub, display string, depth int, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k, err := registry.OpenKey(base, sub, registry.QUERY_VALUE|registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		// Missing or access-denied keys are not references
		logger := logging.GetLogger("registry")
		logger.Trace().Err(err).Str("key", display).Msg("skipping registry key")
		return nil
	}
	defer func() { _ = k.Close() }()

	names, err := k.ReadValueNames(-1)
	if err != nil {
		return err
	}
	values := make([]Value, 0, len(names))
	for _, name := range names {
		if v, err := readValue(k, name); err == nil {
			values = append(values, v)
		}
	}
	if err := fn(display, values); err != nil {
		return err
	}

	if depth <= 0 {
		return nil
	}
	subkeys, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return err
	}
	for _, name := range subkeys {
		if err := h.walk(ctx, base, sub+`\`+name, display+`\`+name, depth-1, fn); err != nil {
			return err
		}
	}
	return nil
}

// readValue returns string-typed values only
func readValue(k registry.Key, name string) (Value, error) {
	_, valtype, err := k.GetValue(name, nil)
	if err != nil {
		return Value{}, err
	}
	switch valtype {
	case registry.SZ, registry.EXPAND_SZ:
		data, _, err := k.GetStringValue(name)
		if err != nil {
			return Value{}, err
		}
		t := types.RegistryString
		if valtype == registry.EXPAND_SZ {
			t = types.RegistryExpandString
		}
		return Value{Name: name, Data: data, Type: t}, nil
	case registry.MULTI_SZ:
		data, _, err := k.GetStringsValue(name)
		if err != nil {
			return Value{}, err
		}
		return Value{Name: name, Data: strings.Join(data, "\x00"), Type: types.RegistryMultiString}, nil
	default:
		return Value{}, stderrors.New("not a string value")
	}
}

func (h *windowsHive) ReadValue(keyPath, name string) (Value, error) {
	base, sub, err := splitKey(keyPath)
	if err != nil {
		return Value{}, err
	}
	k, err := registry.OpenKey(base, sub, registry.QUERY_VALUE)
	if err != nil {
		return Value{}, err
	}
	defer func() { _ = k.Close() }()
	return readValue(k, name)
}

func (h *windowsHive) WriteValue(keyPath string, v Value) error {
	base, sub, err := splitKey(keyPath)
	if err != nil {
		return err
	}
	k, err := registry.OpenKey(base, sub, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer func() { _ = k.Close() }()

	switch v.Type {
	case types.RegistryExpandString:
		return k.SetExpandStringValue(v.Name, v.Data)
	case types.RegistryMultiString:
		return k.SetStringsValue(v.Name, strings.Split(v.Data, "\x00"))
	default:
		return k.SetStringValue(v.Name, v.Data)
	}
}
