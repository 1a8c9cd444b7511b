package command

import (
	"os"
	"reflect"
	"strings"
	"unicode"

	"golang.org/x/sys/unix"
)

func ptrOf[T any](v T) *T {
	return &v
}

func defaultIfNil[T any](v *T, defaultValue T) T {
	if v == nil {
		return defaultValue
	}
	return *v
}

func defaultIfEmpty(v, defaultValue string) string {
	if v == "" {
		return defaultValue
	}
	return v
}

func intForBool(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fieldNameToFlagName(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i == 0 {
			result = append(result, unicode.ToLower(r))
		} else if unicode.IsUpper(r) {
			if unicode.IsLower(rune(fieldName[i-1])) {
				result = append(result, '-')
			}
			result = append(result, unicode.ToLower(r))
		} else {
			if i >= 2 && unicode.IsUpper(rune(fieldName[i-1])) && unicode.IsUpper(rune(fieldName[i-2])) {
				last := result[len(result)-1]
				result = append(result[0:len(result)-1], '-', last)
			}
			result = append(result, r)
		}
	}
	return string(result)
}

func flagNameToEnvVarName(flagName string) string {
	return strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

// flagDisplayName renders a flag name the way users type it: "-b" for one-letter names, "--name" otherwise.
func flagDisplayName(name string) string {
	if len([]rune(name)) == 1 {
		return "-" + name
	}
	return "--" + name
}

// isNilAction reports whether the given action is absent, including typed nils such as a nil ActionFunc or a nil
// struct pointer stored in the interface.
func isNilAction(a Action) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

// sameObject reports whether both values are the same pointer, so a config object doubling as a hook is scanned once.
func sameObject(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	return va.Kind() == reflect.Ptr && vb.Kind() == reflect.Ptr && va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
}

// EnvVarsArrayToMap converts "NAME=value" entries (as returned by os.Environ) into a map. Entries without a name are
// skipped.
func EnvVarsArrayToMap(envVars []string) map[string]string {
	envVarsMap := make(map[string]string)
	for _, nameValue := range envVars {
		if name, value, found := strings.Cut(nameValue, "="); found && name != "" {
			envVarsMap[name] = value
		}
	}
	return envVarsMap
}

func getTerminalWidth() int {
	fd := int(os.Stdout.Fd())
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 80
	}
	return int(ws.Col)
}
