package command

import (
	"fmt"
	"strconv"
)

// mergedFlagDef is the view of one flag name across a command and its ancestors: all flag definitions sharing that
// name are updated together.
type mergedFlagDef struct {
	flagInfo
	applied  bool
	flagDefs []*flagDef
}

func mergeOptional(name, attr string, current **string, given *string) error {
	if *current == nil {
		*current = given
	} else if given != nil && **current != *given {
		return fmt.Errorf("flag '%s' has incompatible %s '%v' - must be '%v'", name, attr, *given, **current)
	}
	return nil
}

func (mfd *mergedFlagDef) addFlagDef(fd *flagDef) error {
	if fd.Name != mfd.Name {
		return fmt.Errorf("given flag '%s' has incompatible name - must be '%s'", fd.Name, mfd.Name)
	}

	if err := mergeOptional(fd.Name, "short name", &mfd.Short, fd.Short); err != nil {
		return err
	}
	if err := mergeOptional(fd.Name, "destination", &mfd.Dest, fd.Dest); err != nil {
		return err
	}
	if err := mergeOptional(fd.Name, "environment variable name", &mfd.EnvVarName, fd.EnvVarName); err != nil {
		return err
	}

	if fd.HasValue != mfd.HasValue {
		if mfd.HasValue {
			return fmt.Errorf("given flag '%s' must have a value, but it does not", fd.Name)
		} else {
			return fmt.Errorf("given flag '%s' must not have a value, but it does", fd.Name)
		}
	}
	if fd.Repeated != mfd.Repeated {
		if mfd.Repeated {
			return fmt.Errorf("given flag '%s' must be repeatable, but it is not", fd.Name)
		} else {
			return fmt.Errorf("given flag '%s' must not be repeatable, but it is", fd.Name)
		}
	}

	if err := mergeOptional(fd.Name, "value-name", &mfd.ValueName, fd.ValueName); err != nil {
		return err
	}

	if mfd.Description == nil {
		mfd.Description = fd.Description
	} else if fd.Description != nil && *mfd.Description != *fd.Description {
		return fmt.Errorf("flag '%s' has incompatible description", fd.Name)
	}

	if mfd.Required == nil {
		mfd.Required = fd.Required
	} else if *mfd.Required && fd.Required != nil && !*fd.Required {
		return fmt.Errorf("flag '%s' is incompatibly optional - must be required", fd.Name)
	}

	if fd.DefaultValue != mfd.DefaultValue {
		return fmt.Errorf("flag '%s' has incompatible default value '%s' - must be '%s'", fd.Name, fd.DefaultValue, mfd.DefaultValue)
	}

	mfd.flagDefs = append(mfd.flagDefs, fd)
	return nil
}

func (mfd *mergedFlagDef) setValue(v string, src valueSource) error {
	mfd.applied = true
	for _, fd := range mfd.flagDefs {
		if err := fd.setValue(v, src); err != nil {
			return err
		}
	}
	return nil
}

// toggle flips a boolean flag away from its default value.
func (mfd *mergedFlagDef) toggle() error {
	def, err := strconv.ParseBool(defaultIfEmpty(mfd.DefaultValue, "false"))
	if err != nil {
		return invalidValue(err, mfd.DefaultValue, mfd.Name)
	}
	return mfd.setValue(strconv.FormatBool(!def), sourceCLI)
}

func (mfd *mergedFlagDef) isRequired() bool {
	return mfd.Required != nil && *mfd.Required
}

// isMissing reports whether this flag is required but received no value from any source. Flag definitions are
// shared between command levels, so a value applied through another level's view of the same flag counts as well.
func (mfd *mergedFlagDef) isMissing() bool {
	if !mfd.isRequired() || mfd.applied {
		return false
	}
	for _, fd := range mfd.flagDefs {
		if fd.applied {
			return false
		}
	}
	return true
}

func (mfd *mergedFlagDef) getValueName() string {
	if mfd.HasValue {
		if mfd.ValueName != nil {
			return *mfd.ValueName
		} else {
			return "VALUE"
		}
	} else {
		return ""
	}
}

func (mfd *mergedFlagDef) getDest() string {
	if mfd.Dest == nil {
		return mfd.Name
	} else if *mfd.Dest == "-" {
		return ""
	}
	return *mfd.Dest
}

// usageName is the flag as shown in usage lines: the short form when one exists, e.g. "-a ARG" or "--name=VALUE".
func (mfd *mergedFlagDef) usageName() string {
	name := mfd.Name
	if mfd.Short != nil {
		name = *mfd.Short
	}
	if vn := mfd.getValueName(); vn != "" {
		if len(name) == 1 {
			return "-" + name + " " + vn
		}
		return "--" + name + "=" + vn
	}
	return flagDisplayName(name)
}

// fullName is the flag as shown in the flags table, listing both forms, e.g. "-a, --argument=ARG".
func (mfd *mergedFlagDef) fullName() string {
	var s string
	if mfd.Short != nil && *mfd.Short != mfd.Name {
		s = "-" + *mfd.Short + ", "
	}
	if vn := mfd.getValueName(); vn != "" {
		if len(mfd.Name) == 1 {
			s += "-" + mfd.Name + " " + vn
		} else {
			s += "--" + mfd.Name + "=" + vn
		}
	} else {
		s += flagDisplayName(mfd.Name)
	}
	return s
}
