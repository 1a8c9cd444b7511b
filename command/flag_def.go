package command

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type ErrInvalidValue struct {
	Cause error
	Value string
	Flag  string
}

func (e *ErrInvalidValue) Error() string {
	return fmt.Sprintf("invalid value '%s' for flag '%s': %s", e.Value, flagDisplayName(e.Flag), e.Cause)
}

func (e *ErrInvalidValue) Unwrap() error {
	return e.Cause
}

func (e *ErrInvalidValue) Is(target error) bool {
	return target == ErrUsage
}

// valueSource identifies where a flag value came from; later sources override earlier ones.
type valueSource int

const (
	sourceNone valueSource = iota
	sourceDefault
	sourceEnv
	sourceCLI
)

type flagInfo struct {
	Name         string
	Short        *string
	Dest         *string
	EnvVarName   *string
	HasValue     bool
	Repeated     bool
	ValueName    *string
	Description  *string
	Required     *bool
	DefaultValue string
}

type flagDef struct {
	flagInfo
	Inherited bool
	Targets   []reflect.Value
	applied   bool
	source    valueSource
}

func (fd *flagDef) isRequired() bool {
	return fd.Required != nil && *fd.Required
}

func (fd *flagDef) getValueName() string {
	if fd.HasValue {
		if fd.ValueName != nil {
			return *fd.ValueName
		} else {
			return "VALUE"
		}
	} else {
		return ""
	}
}

// getDest returns the destination key of this flag in a ParsedArguments bundle, or "" if the flag is not recorded.
func (fd *flagDef) getDest() string {
	if fd.Dest == nil {
		return fd.Name
	} else if *fd.Dest == "-" {
		return ""
	}
	return *fd.Dest
}

func invalidValue(err error, sv, flagName string) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return &ErrInvalidValue{Cause: ne.Err, Value: ne.Num, Flag: flagName}
	}
	return &ErrInvalidValue{Cause: err, Value: sv, Flag: flagName}
}

// splitSliceValue returns the elements a single value contributes to a slice flag. Each command line occurrence is
// one element, taken verbatim; defaults and environment variables hold a comma-separated list.
func splitSliceValue(sv string, src valueSource) ([]string, error) {
	if src == sourceCLI {
		return []string{sv}, nil
	} else if strings.TrimSpace(sv) == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(sv))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.Read()
}

// setValue parses the given string into all targets of this flag. Slice targets are replaced, unless both the current
// and the new value came from the command line, in which case the new elements are appended.
func (fd *flagDef) setValue(sv string, src valueSource) error {
	for _, fv := range fd.Targets {
		switch fv.Kind() {
		case reflect.Bool:
			if b, err := strconv.ParseBool(sv); err != nil {
				return invalidValue(err, sv, fd.Name)
			} else {
				fv.SetBool(b)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if i, err := strconv.ParseInt(sv, 10, fv.Type().Bits()); err != nil {
				return invalidValue(err, sv, fd.Name)
			} else {
				fv.SetInt(i)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if ui, err := strconv.ParseUint(sv, 10, fv.Type().Bits()); err != nil {
				return invalidValue(err, sv, fd.Name)
			} else {
				fv.SetUint(ui)
			}
		case reflect.Float32, reflect.Float64:
			if f, err := strconv.ParseFloat(sv, fv.Type().Bits()); err != nil {
				return invalidValue(err, sv, fd.Name)
			} else {
				fv.SetFloat(f)
			}
		case reflect.String:
			fv.SetString(sv)
		case reflect.Slice:
			rec, err := splitSliceValue(sv, src)
			if err != nil {
				return &ErrInvalidValue{Cause: err, Value: sv, Flag: fd.Name}
			}

			targetType := fv.Type().Elem()
			outSlice := reflect.MakeSlice(reflect.SliceOf(targetType), len(rec), len(rec))
			for i, inElem := range rec {
				var outElem any
				var err error
				switch targetType.Kind() {
				case reflect.String:
					outElem = inElem
				case reflect.Int:
					outElem, err = strconv.Atoi(inElem)
				case reflect.Float32:
					if f64, parseErr := strconv.ParseFloat(inElem, 32); parseErr == nil {
						outElem = float32(f64)
					} else {
						err = parseErr
					}
				case reflect.Float64:
					outElem, err = strconv.ParseFloat(inElem, 64)
				case reflect.Bool:
					outElem, err = strconv.ParseBool(inElem)
				default:
					return fmt.Errorf("%w: slice element kind is '%s'", errors.ErrUnsupported, targetType.Kind())
				}
				if err != nil {
					return invalidValue(err, inElem, fd.Name)
				}
				outSlice.Index(i).Set(reflect.ValueOf(outElem).Convert(targetType))
			}
			if src == sourceCLI && fd.source == sourceCLI {
				fv.Set(reflect.AppendSlice(fv, outSlice))
			} else {
				fv.Set(outSlice)
			}
		default:
			return fmt.Errorf("%w: field kind is '%s'", errors.ErrUnsupported, fv.Kind())
		}
	}
	fd.applied = true
	fd.source = src
	return nil
}

// getValue returns a snapshot of the flag's current value, as stored in its first target. Slices are copied so that
// later mutations of the configuration struct are not visible through the snapshot.
func (fd *flagDef) getValue() any {
	if len(fd.Targets) == 0 {
		return nil
	}
	fv := fd.Targets[0]
	if fv.Kind() == reflect.Slice {
		if fv.IsNil() {
			return nil
		}
		cp := reflect.MakeSlice(fv.Type(), fv.Len(), fv.Len())
		reflect.Copy(cp, fv)
		return cp.Interface()
	}
	return fv.Interface()
}

func (fd *flagDef) isLessThan(b *flagDef) bool {
	a := fd
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c < 0
	}
	if c := cmp.Compare(defaultIfNil(a.Short, ""), defaultIfNil(b.Short, "")); c != 0 {
		return c < 0
	}
	if c := cmp.Compare(defaultIfNil(a.Dest, ""), defaultIfNil(b.Dest, "")); c != 0 {
		return c < 0
	}
	if c := cmp.Compare(defaultIfNil(a.EnvVarName, ""), defaultIfNil(b.EnvVarName, "")); c != 0 {
		return c < 0
	}
	if c := cmp.Compare(intForBool(a.HasValue), intForBool(b.HasValue)); c != 0 {
		return c < 0
	}
	if c := cmp.Compare(defaultIfNil(a.ValueName, ""), defaultIfNil(b.ValueName, "")); c != 0 {
		return c < 0
	}
	if c := cmp.Compare(defaultIfNil(a.Description, ""), defaultIfNil(b.Description, "")); c != 0 {
		return c < 0
	}
	if c := cmp.Compare(intForBool(defaultIfNil(a.Required, false)), intForBool(defaultIfNil(b.Required, false))); c != 0 {
		return c < 0
	}
	if c := cmp.Compare(a.DefaultValue, b.DefaultValue); c != 0 {
		return c < 0
	}
	return cmp.Compare(intForBool(a.Inherited), intForBool(b.Inherited)) < 0
}
