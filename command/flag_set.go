package command

import (
	"cmp"
	"errors"
	"flag"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

type Tag string

const (
	TagFlag        Tag = "flag"
	TagName        Tag = "name"
	TagShort       Tag = "short"
	TagDest        Tag = "dest"
	TagDefault     Tag = "default"
	TagEnv         Tag = "env"
	TagValueName   Tag = "value-name"
	TagDescription Tag = "desc"
	TagRequired    Tag = "required"
	TagInherited   Tag = "inherited"
	TagArgs        Tag = "args"
)

var (
	ErrUsage        = errors.New("usage error")
	ErrFlagConflict = errors.New("conflicting flags")
	ErrToggleValue  = errors.New("toggle flags do not accept a value")
)

var unknownFlagRE = regexp.MustCompile(`^flag provided but not defined: -(.+)$`)

type ErrInvalidTag struct {
	Cause error
	Tag   Tag
	Value string
}

func (e *ErrInvalidTag) Error() string {
	return fmt.Sprintf("invalid tag '%s=%s': %s", e.Tag, e.Value, e.Cause)
}

func (e *ErrInvalidTag) Unwrap() error {
	return e.Cause
}

type ErrUnknownFlag struct {
	Cause error
	Flag  string
}

func (e *ErrUnknownFlag) Error() string {
	return fmt.Sprintf("unknown flag: %s", flagDisplayName(e.Flag))
}

func (e *ErrUnknownFlag) Unwrap() error {
	return e.Cause
}

func (e *ErrUnknownFlag) Is(target error) bool {
	return target == ErrUsage
}

type ErrRequiredFlagMissing struct {
	Cause error
	Flag  string
}

func (e *ErrRequiredFlagMissing) Error() string {
	return fmt.Sprintf("required flag is missing: %s", flagDisplayName(e.Flag))
}

func (e *ErrRequiredFlagMissing) Unwrap() error {
	return e.Cause
}

func (e *ErrRequiredFlagMissing) Is(target error) bool {
	return target == ErrUsage
}

type ErrUnexpectedArgument struct {
	Argument string
}

func (e *ErrUnexpectedArgument) Error() string {
	return fmt.Sprintf("unexpected argument: %s", e.Argument)
}

func (e *ErrUnexpectedArgument) Is(target error) bool {
	return target == ErrUsage
}

// ErrMalformedArguments wraps syntax errors reported by the underlying flag parser, e.g. a value flag given last
// without its value.
type ErrMalformedArguments struct {
	Cause error
}

func (e *ErrMalformedArguments) Error() string {
	return e.Cause.Error()
}

func (e *ErrMalformedArguments) Unwrap() error {
	return e.Cause
}

func (e *ErrMalformedArguments) Is(target error) bool {
	return target == ErrUsage
}

type flagSet struct {
	flags              []*flagDef
	parent             *flagSet
	positionalsTargets []*[]string
}

func newFlagSet(parent *flagSet, objects ...reflect.Value) (*flagSet, error) {
	fs := &flagSet{parent: parent}
	for _, c := range objects {
		if c.Kind() == reflect.Ptr && c.Type().Elem().Kind() == reflect.Struct {
			if c.IsNil() {
				if !c.CanSet() {
					continue
				}
				c.Set(reflect.New(c.Type().Elem()))
			}
			if err := fs.readFlagsFromStruct(c.Elem(), false); err != nil {
				return nil, err
			}
		}
	}
	return fs, nil
}

func (fs *flagSet) hasFlags() bool {
	if len(fs.flags) > 0 {
		return true
	}
	for _fs := fs.parent; _fs != nil; _fs = _fs.parent {
		for _, fd := range _fs.flags {
			if fd.Inherited {
				return true
			}
		}
	}
	return false
}

func (fs *flagSet) hasPositionalsTargets() bool {
	for cfs := fs; cfs != nil; cfs = cfs.parent {
		if len(cfs.positionalsTargets) > 0 {
			return true
		}
	}
	return false
}

func (fs *flagSet) readFlagsFromStruct(s reflect.Value, defaultInherited bool) error {
	for i := 0; i < s.NumField(); i++ {
		fieldValue := s.Field(i)
		structField := s.Type().Field(i)
		fieldName := structField.Name
		if err := fs.readFlagFromField(fieldValue, structField, defaultInherited); err != nil {
			return fmt.Errorf("invalid field '%s.%s': %w", s.Type(), fieldName, err)
		}
	}
	return nil
}

func parseBoolTag(structField reflect.StructField, tag Tag) (value, ok bool, err error) {
	sv, found := structField.Tag.Lookup(string(tag))
	if !found {
		return false, false, nil
	}
	v, err := strconv.ParseBool(sv)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) {
			err = ne.Err
		}
		return false, true, &ErrInvalidTag{Cause: err, Tag: tag, Value: sv}
	}
	return v, true, nil
}

func (fs *flagSet) readFlagFromField(fieldValue reflect.Value, structField reflect.StructField, defaultInherited bool) error {
	fieldName := structField.Name

	// Initial configuration of this field
	var flagTag Tag
	var defaultTag *string
	fd := &flagDef{
		flagInfo:  flagInfo{Name: fieldNameToFlagName(fieldName)},
		Inherited: defaultInherited,
		Targets:   []reflect.Value{fieldValue},
	}

	// Read field tags
	if v, ok, err := parseBoolTag(structField, TagFlag); err != nil {
		return err
	} else if ok && !v {
		return nil
	} else if ok {
		flagTag = TagFlag
	}
	if tag, ok := structField.Tag.Lookup(string(TagName)); ok {
		if tag == "" {
			return &ErrInvalidTag{Cause: fmt.Errorf("must not be empty"), Tag: TagName, Value: tag}
		} else if strings.HasPrefix(tag, "-") {
			return &ErrInvalidTag{Cause: fmt.Errorf("must not start with '-'"), Tag: TagName, Value: tag}
		}
		flagTag = TagName
		fd.Name = tag
	}
	if tag, ok := structField.Tag.Lookup(string(TagShort)); ok {
		if utf8.RuneCountInString(tag) != 1 || tag == "-" || tag == "=" {
			return &ErrInvalidTag{Cause: fmt.Errorf("must be a single character"), Tag: TagShort, Value: tag}
		}
		flagTag = TagShort
		fd.Short = &tag
	}
	if tag, ok := structField.Tag.Lookup(string(TagDest)); ok {
		if tag == "" {
			return &ErrInvalidTag{Cause: fmt.Errorf("must not be empty"), Tag: TagDest, Value: tag}
		} else if tag == SubcommandKey {
			return &ErrInvalidTag{Cause: fmt.Errorf("reserved for the selected sub-command"), Tag: TagDest, Value: tag}
		}
		flagTag = TagDest
		fd.Dest = &tag
	}
	if tag, ok := structField.Tag.Lookup(string(TagDefault)); ok {
		flagTag = TagDefault
		defaultTag = &tag
	}
	if tag, ok := structField.Tag.Lookup(string(TagEnv)); ok {
		if tag == "" {
			return &ErrInvalidTag{Cause: fmt.Errorf("must not be empty"), Tag: TagEnv, Value: tag}
		} else {
			tag = strings.ToUpper(tag)
		}
		flagTag = TagEnv
		fd.EnvVarName = &tag
	}
	if tag, ok := structField.Tag.Lookup(string(TagValueName)); ok {
		if tag == "" {
			return &ErrInvalidTag{Cause: fmt.Errorf("must not be empty"), Tag: TagValueName, Value: tag}
		} else if fieldValue.Kind() == reflect.Bool {
			return &ErrInvalidTag{Cause: fmt.Errorf("not supported for bool fields"), Tag: TagValueName, Value: tag}
		}
		flagTag = TagValueName
		fd.ValueName = &tag
	}
	if tag, ok := structField.Tag.Lookup(string(TagDescription)); ok {
		flagTag = TagDescription
		fd.Description = &tag
	}
	if v, ok, err := parseBoolTag(structField, TagRequired); err != nil {
		return err
	} else if ok {
		flagTag = TagRequired
		fd.Required = ptrOf(v)
	}
	if v, ok, err := parseBoolTag(structField, TagInherited); err != nil {
		return err
	} else if ok {
		flagTag = TagInherited
		fd.Inherited = v
	}
	args, _, err := parseBoolTag(structField, TagArgs)
	if err != nil {
		return err
	}

	if fieldValue.Kind() == reflect.Struct {
		// Struct fields are only containers for other fields; if the struct is tagged with "args" or any flag tag, fail
		if args {
			return &ErrInvalidTag{Cause: fmt.Errorf("cannot be used on struct fields"), Tag: TagArgs, Value: strconv.FormatBool(args)}
		} else if flagTag != "" {
			return &ErrInvalidTag{Cause: fmt.Errorf("cannot be used on struct fields"), Tag: flagTag, Value: structField.Tag.Get(string(flagTag))}
		} else if err := fs.readFlagsFromStruct(fieldValue, fd.Inherited); err != nil {
			return err
		} else {
			return nil
		}
	} else if !args && flagTag == "" {
		// Neither a positional args target nor a flag - do nothing and exit
		return nil
	} else if !fieldValue.CanAddr() {
		return fmt.Errorf("not addressable")
	} else if !fieldValue.CanSet() {
		return fmt.Errorf("not settable")
	} else if args {
		// If field is tagged with "args", it cannot also serve as a flag; it also must be of type "[]string"
		if flagTag != "" {
			return &ErrInvalidTag{Cause: fmt.Errorf("cannot be a flag as well"), Tag: TagArgs, Value: strconv.FormatBool(args)}
		} else if structField.Type.ConvertibleTo(reflect.TypeOf([]string{})) {
			fs.positionalsTargets = append(fs.positionalsTargets, fieldValue.Addr().Interface().(*[]string))
			return nil
		} else {
			return &ErrInvalidTag{Cause: fmt.Errorf("must be typed as []string"), Tag: TagArgs, Value: strconv.FormatBool(args)}
		}
	}

	// Configure whether flag should be given a value in the CLI, and the default value if one is not provided
	switch fieldValue.Kind() {
	case reflect.Bool:
		fd.HasValue = false
		fd.DefaultValue = strconv.FormatBool(fieldValue.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fd.HasValue = true
		fd.DefaultValue = strconv.FormatInt(fieldValue.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fd.HasValue = true
		fd.DefaultValue = strconv.FormatUint(fieldValue.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		fd.HasValue = true
		fd.DefaultValue = strconv.FormatFloat(fieldValue.Float(), 'g', -1, 64)
	case reflect.String:
		fd.HasValue = true
		fd.DefaultValue = fieldValue.String()
	case reflect.Slice:
		fd.HasValue = true
		fd.Repeated = true
		var defaultValues []string
		for i := 0; i < fieldValue.Len(); i++ {
			defaultValues = append(defaultValues, fmt.Sprint(fieldValue.Index(i).Interface()))
		}
		fd.DefaultValue = strings.Join(defaultValues, ",")
	default:
		return fmt.Errorf("unsupported field type: %s", fieldValue.Kind())
	}
	if defaultTag != nil {
		if fieldValue.Kind() == reflect.Bool {
			if _, err := strconv.ParseBool(*defaultTag); err != nil {
				return &ErrInvalidTag{Cause: errors.Unwrap(err), Tag: TagDefault, Value: *defaultTag}
			}
		}
		fd.DefaultValue = *defaultTag
	}

	// Otherwise, this is a flag - check if it has already been registered?
	for _, fdi := range fs.flags {
		if fdi.Name == fd.Name {
			if err := mergeFlagDef(fdi, fd); err != nil {
				return err
			}
			fdi.Targets = append(fdi.Targets, fd.Targets...)
			return nil
		}
	}

	// New flag, add it as is
	fs.flags = append(fs.flags, fd)
	return nil
}

// mergeFlagDef folds a second declaration of the same flag in the same flag set into the existing one.
func mergeFlagDef(fdi, fd *flagDef) error {
	for _, p := range []struct {
		tag      Tag
		existing **string
		given    *string
	}{
		{TagShort, &fdi.Short, fd.Short},
		{TagDest, &fdi.Dest, fd.Dest},
		{TagEnv, &fdi.EnvVarName, fd.EnvVarName},
		{TagValueName, &fdi.ValueName, fd.ValueName},
		{TagDescription, &fdi.Description, fd.Description},
	} {
		if *p.existing == nil {
			*p.existing = p.given
		} else if p.given != nil && **p.existing != *p.given {
			return &ErrInvalidTag{Cause: fmt.Errorf("cannot redefine %s", p.tag), Tag: p.tag, Value: *p.given}
		}
	}
	if fdi.HasValue != fd.HasValue {
		return fmt.Errorf("incompatible field types detected (is one a bool and another isn't?)")
	}
	if fdi.Required == nil {
		fdi.Required = fd.Required
	} else if fd.Required != nil && *fdi.Required != *fd.Required {
		return &ErrInvalidTag{Cause: fmt.Errorf("cannot redefine required status"), Tag: TagRequired, Value: strconv.FormatBool(*fd.Required)}
	}
	if fdi.DefaultValue != fd.DefaultValue {
		return fmt.Errorf("incompatible default values detected: '%s' vs '%s'", fdi.DefaultValue, fd.DefaultValue)
	}
	if fdi.Inherited != fd.Inherited {
		return fmt.Errorf("incompatible inherited status detected: '%v' vs '%v'", fdi.Inherited, fd.Inherited)
	}
	return nil
}

func (fs *flagSet) getMergedFlagDefs() ([]*mergedFlagDef, error) {
	flags := make(map[string]*mergedFlagDef)
	for cfs := fs; cfs != nil; cfs = cfs.parent {
		for _, fd := range cfs.flags {
			if cfs == fs || fd.Inherited {
				if mfd, ok := flags[fd.Name]; !ok {
					flags[fd.Name] = &mergedFlagDef{
						flagInfo: fd.flagInfo,
						applied:  false,
						flagDefs: []*flagDef{fd},
					}
				} else if err := mfd.addFlagDef(fd); err != nil {
					return nil, err
				}
			}
		}
	}
	var mergedFlagDefs []*mergedFlagDef
	for _, mfd := range flags {
		if mfd.EnvVarName == nil {
			mfd.EnvVarName = ptrOf(flagNameToEnvVarName(mfd.Name))
		}
		if mfd.ValueName == nil {
			mfd.ValueName = ptrOf("VALUE")
		}
		if mfd.Required == nil {
			mfd.Required = ptrOf(false)
		}
		sort.Slice(mfd.flagDefs, func(ai, bi int) bool { return mfd.flagDefs[ai].isLessThan(mfd.flagDefs[bi]) })
		mergedFlagDefs = append(mergedFlagDefs, mfd)
	}
	sort.Slice(mergedFlagDefs, func(ai, bi int) bool { return cmp.Less(mergedFlagDefs[ai].Name, mergedFlagDefs[bi].Name) })

	// Names, short names & destinations must not collide, or parsing would be ambiguous
	names := make(map[string]string)
	dests := make(map[string]string)
	for _, mfd := range mergedFlagDefs {
		if mfd.Short != nil && *mfd.Short != mfd.Name {
			if other, ok := flags[*mfd.Short]; ok {
				return nil, fmt.Errorf("%w: short name '-%s' of flag '%s' is also the name of flag '%s'", ErrFlagConflict, *mfd.Short, mfd.Name, other.Name)
			} else if other, ok := names[*mfd.Short]; ok {
				return nil, fmt.Errorf("%w: short name '-%s' is used by both '%s' and '%s'", ErrFlagConflict, *mfd.Short, other, mfd.Name)
			}
			names[*mfd.Short] = mfd.Name
		}
		if dest := mfd.getDest(); dest != "" {
			if other, ok := dests[dest]; ok {
				return nil, fmt.Errorf("%w: destination '%s' is used by both '%s' and '%s'", ErrFlagConflict, dest, other, mfd.Name)
			}
			dests[dest] = mfd.Name
		}
	}
	return mergedFlagDefs, nil
}

// flagSetView is a flag set resolved for one parse: merged flag definitions plus the stdlib parser wired to them.
type flagSetView struct {
	fs     *flagSet
	merged []*mergedFlagDef
	std    *flag.FlagSet
	err    error
}

func (fs *flagSet) newView() (*flagSetView, error) {
	mergedFlagDefs, err := fs.getMergedFlagDefs()
	if err != nil {
		return nil, err
	}

	stdFs := flag.NewFlagSet("", flag.ContinueOnError)
	stdFs.SetOutput(io.Discard)
	view := &flagSetView{fs: fs, merged: mergedFlagDefs, std: stdFs}
	for _, mfd := range mergedFlagDefs {
		names := []string{mfd.Name}
		if mfd.Short != nil && *mfd.Short != mfd.Name {
			names = append(names, *mfd.Short)
		}
		for _, name := range names {
			if mfd.HasValue {
				stdFs.Func(name, "", func(v string) error { return view.capture(mfd.setValue(v, sourceCLI)) })
			} else {
				stdFs.BoolFunc(name, "", func(string) error { return view.capture(mfd.toggle()) })
			}
		}
	}
	return view, nil
}

// capture remembers the first error returned by a flag callback, since the stdlib parser only reports it as text.
func (v *flagSetView) capture(err error) error {
	if err != nil && v.err == nil {
		v.err = err
	}
	return err
}

// lookup finds a flag by its long or short name.
func (v *flagSetView) lookup(name string) *mergedFlagDef {
	for _, mfd := range v.merged {
		if mfd.Name == name || (mfd.Short != nil && *mfd.Short == name) {
			return mfd
		}
	}
	return nil
}

// applyDefaults resets every flag to its default value, then applies the corresponding environment variables.
func (v *flagSetView) applyDefaults(envVars map[string]string) error {
	for _, mfd := range v.merged {
		mfd.applied = false
		for _, fd := range mfd.flagDefs {
			fd.applied = false
			fd.source = sourceNone
			if mfd.DefaultValue == "" {
				for _, target := range fd.Targets {
					target.Set(reflect.Zero(target.Type()))
				}
			}
		}

		// Set the field's default value so it's marked as "applied" (and thus the "required" validation will ignore it)
		if mfd.DefaultValue != "" {
			if err := mfd.setValue(mfd.DefaultValue, sourceDefault); err != nil {
				return fmt.Errorf("failed applying default value for flag '%s': %w", mfd.Name, err)
			}
		}

		// Environment variables override defaults, and are overridden by CLI flags
		if value, found := envVars[*mfd.EnvVarName]; found {
			if err := mfd.setValue(value, sourceEnv); err != nil {
				return err
			}
		}
	}
	return nil
}

// parse applies the given CLI flags (and their values) and returns any arguments the flag parser did not consume.
func (v *flagSetView) parse(args []string) ([]string, error) {
	v.err = nil
	if err := v.rejectToggleValues(args); err != nil {
		return nil, err
	}
	if err := v.std.Parse(args); err != nil {
		if v.err != nil {
			return nil, v.err
		} else if matches := unknownFlagRE.FindStringSubmatch(err.Error()); matches != nil {
			return nil, &ErrUnknownFlag{Cause: err, Flag: matches[1]}
		}
		return nil, &ErrMalformedArguments{Cause: err}
	}
	return v.std.Args(), nil
}

// rejectToggleValues fails on a toggle given an explicit value, e.g. "-t=false". The stdlib parser would treat it as
// a plain toggle. Scanning stops where the stdlib parser stops: at the first non-flag token, "--" or an unknown flag.
func (v *flagSetView) rejectToggleValues(args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) < 2 || arg[0] != '-' || arg == "--" {
			return nil
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		mfd := v.lookup(name)
		if mfd == nil {
			return nil
		} else if !mfd.HasValue && hasValue {
			return &ErrInvalidValue{Cause: ErrToggleValue, Value: value, Flag: name}
		} else if mfd.HasValue && !hasValue {
			i++
		}
	}
	return nil
}

func (v *flagSetView) verify() error {
	for _, mfd := range v.merged {
		if mfd.isMissing() {
			return &ErrRequiredFlagMissing{Flag: mfd.Name}
		}
	}
	return nil
}

func (v *flagSetView) applyPositionals(positionals []string) {
	for cfs := v.fs; cfs != nil; cfs = cfs.parent {
		for _, target := range cfs.positionalsTargets {
			*target = positionals
		}
	}
}

func (fs *flagSet) printFlagsSingleLine(b io.Writer) error {

	// Merge flags from this flag set and its parents
	mergedFlagDefs, err := fs.getMergedFlagDefs()
	if err != nil {
		return err
	}

	space := false
	for _, fd := range mergedFlagDefs {
		if space {
			_, _ = fmt.Fprint(b, " ")
		} else {
			space = true
		}
		if fd.isRequired() {
			_, _ = fmt.Fprint(b, fd.usageName())
		} else {
			_, _ = fmt.Fprintf(b, "[%s]", fd.usageName())
		}
	}
	if fs.hasPositionalsTargets() {
		if space {
			_, _ = fmt.Fprint(b, " ")
		}
		_, _ = fmt.Fprint(b, "[ARGS...]")
	}

	return nil
}

func (fs *flagSet) printFlagsMultiLine(ww *WrappingWriter, basePrefix string) error {

	// Merge flags from this flag set and its parents
	mergedFlagDefs, err := fs.getMergedFlagDefs()
	if err != nil {
		return err
	}

	flagsColWidth := 0
	fullFlagNames := make(map[string]string)
	for _, fd := range mergedFlagDefs {
		fullFlagName := fd.fullName()
		if !fd.isRequired() {
			fullFlagName = "[" + fullFlagName + "]"
		}
		fullFlagNames[fd.Name] = fullFlagName
		if len(fullFlagName) > flagsColWidth {
			flagsColWidth = len(fullFlagName)
		}
	}

	descriptionStartColumn := flagsColWidth + (10 - flagsColWidth%10)
	for _, fd := range mergedFlagDefs {
		flagName := fullFlagNames[fd.Name]
		_, _ = fmt.Fprint(ww, flagName)
		_, _ = fmt.Fprint(ww, strings.Repeat(" ", descriptionStartColumn-len(flagName)))
		_ = ww.SetLinePrefix(basePrefix + strings.Repeat(" ", descriptionStartColumn))

		// Build flag description
		hasDescription := fd.Description != nil && *fd.Description != ""
		var sep string
		if hasDescription {
			_, _ = fmt.Fprint(ww, *fd.Description)
			sep = " ("
		}

		if fd.DefaultValue != "" {
			if sep != "" {
				_, _ = fmt.Fprint(ww, sep)
			}
			_, _ = fmt.Fprintf(ww, "default value: %s", fd.DefaultValue)
			sep = ", "
		}
		if fd.EnvVarName != nil {
			if sep != "" {
				_, _ = fmt.Fprint(ww, sep)
			}
			_, _ = fmt.Fprintf(ww, "environment variable: %s", *fd.EnvVarName)
		}
		if hasDescription {
			_, _ = fmt.Fprint(ww, ")")
		}

		_ = ww.SetLinePrefix(basePrefix)
		_, _ = fmt.Fprintln(ww)
	}

	return nil
}
