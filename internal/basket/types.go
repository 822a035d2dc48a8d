package basket

import (
	"fmt"
	"strings"
)

// DatafieldType is the reserved auxiliary type. Documents may carry it, but it is
// never part of a basket's coverage and cannot be purged.
const DatafieldType = "Datafield"

// BasketType is the object type whose entries are basket definitions.
const BasketType = "Basket"

// Target identifies where objects of a type live in the object repository: a class
// (one table) and an optional object_type filter distinguishing templates, objects
// and apply rules that share that class.
type Target struct {
	Class      string
	ObjectType string
}

func (t Target) String() string {
	if t.ObjectType == "" {
		return t.Class
	}
	return t.Class + "[" + t.ObjectType + "]"
}

// TypeSpec is one row of the object type table.
type TypeSpec struct {
	Name      string
	Target    Target
	Purgeable bool
}

// typeTable lists every known object type. The order is the restore order:
// auxiliary data and baskets first, then types before the types that reference them.
var typeTable = []TypeSpec{
	{Name: DatafieldType, Target: Target{Class: "director_datafield"}},
	{Name: BasketType, Target: Target{Class: "director_basket"}, Purgeable: true},
	{Name: "TimePeriod", Target: Target{Class: "icinga_timeperiod"}, Purgeable: true},
	{Name: "CommandTemplate", Target: Target{Class: "icinga_command", ObjectType: "template"}, Purgeable: true},
	{Name: "ExternalCommand", Target: Target{Class: "icinga_command", ObjectType: "external_object"}, Purgeable: true},
	{Name: "Command", Target: Target{Class: "icinga_command", ObjectType: "object"}, Purgeable: true},
	{Name: "HostGroup", Target: Target{Class: "icinga_hostgroup"}, Purgeable: true},
	{Name: "IcingaTemplateChoiceHost", Target: Target{Class: "icinga_host_template_choice"}, Purgeable: true},
	{Name: "HostTemplate", Target: Target{Class: "icinga_host", ObjectType: "template"}, Purgeable: true},
	{Name: "ServiceGroup", Target: Target{Class: "icinga_servicegroup"}, Purgeable: true},
	{Name: "IcingaTemplateChoiceService", Target: Target{Class: "icinga_service_template_choice"}, Purgeable: true},
	{Name: "ServiceTemplate", Target: Target{Class: "icinga_service", ObjectType: "template"}, Purgeable: true},
	{Name: "ServiceSet", Target: Target{Class: "icinga_service_set", ObjectType: "template"}, Purgeable: true},
	{Name: "UserGroup", Target: Target{Class: "icinga_usergroup"}, Purgeable: true},
	{Name: "UserTemplate", Target: Target{Class: "icinga_user", ObjectType: "template"}, Purgeable: true},
	{Name: "User", Target: Target{Class: "icinga_user", ObjectType: "object"}, Purgeable: true},
	{Name: "NotificationTemplate", Target: Target{Class: "icinga_notification", ObjectType: "template"}, Purgeable: true},
	{Name: "Notification", Target: Target{Class: "icinga_notification", ObjectType: "apply"}, Purgeable: true},
	{Name: "Dependency", Target: Target{Class: "icinga_dependency", ObjectType: "apply"}, Purgeable: true},
	{Name: "DataList", Target: Target{Class: "director_datalist"}, Purgeable: true},
	{Name: "ImportSource", Target: Target{Class: "import_source"}, Purgeable: true},
	{Name: "SyncRule", Target: Target{Class: "sync_rule"}, Purgeable: true},
	{Name: "DirectorJob", Target: Target{Class: "director_job"}, Purgeable: true},
}

var typeIndex = buildTypeIndex(typeTable)

// buildTypeIndex panics on a malformed table so a bad edit fails at startup.
func buildTypeIndex(table []TypeSpec) map[string]int {
	idx := make(map[string]int, len(table))
	seen := make(map[Target]string, len(table))
	for i, spec := range table {
		if spec.Name == "" || spec.Target.Class == "" {
			panic(fmt.Sprintf("basket: type table row %d is incomplete", i))
		}
		if _, dup := idx[spec.Name]; dup {
			panic(fmt.Sprintf("basket: duplicate type %q in type table", spec.Name))
		}
		if other, dup := seen[spec.Target]; dup {
			panic(fmt.Sprintf("basket: types %q and %q share target %s", other, spec.Name, spec.Target))
		}
		idx[spec.Name] = i
		seen[spec.Target] = spec.Name
	}
	return idx
}

// Types returns a copy of the type table in restore order.
func Types() []TypeSpec {
	return append([]TypeSpec(nil), typeTable...)
}

// LookupType returns the table row for a type name.
func LookupType(name string) (TypeSpec, bool) {
	i, ok := typeIndex[name]
	if !ok {
		return TypeSpec{}, false
	}
	return typeTable[i], true
}

// TargetForType resolves a type name to its repository target.
func TargetForType(name string) (Target, error) {
	spec, ok := LookupType(name)
	if !ok {
		return Target{}, fmt.Errorf("%w: unknown object type %q", ErrValidation, name)
	}
	return spec.Target, nil
}

// DefaultCoverageTypes lists the types a bootstrapped basket covers in full.
func DefaultCoverageTypes() []string {
	var names []string
	for _, spec := range typeTable {
		if spec.Name == DatafieldType {
			continue
		}
		names = append(names, spec.Name)
	}
	return names
}

// AssertEligibleForPurge checks every requested type before anything is deleted.
// All offending types are reported together.
func AssertEligibleForPurge(types []string) error {
	var bad []string
	for _, name := range types {
		spec, ok := LookupType(name)
		if !ok || !spec.Purgeable {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrIneligibleType, strings.Join(bad, ", "))
	}
	return nil
}

// typeOrder returns the restore position of a type; unknown types sort last.
func typeOrder(name string) int {
	if i, ok := typeIndex[name]; ok {
		return i
	}
	return len(typeTable)
}
