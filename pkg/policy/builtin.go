package policy

// GetBuiltinPolicies returns the policies compiled into every engine.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		createCapPolicy(),
		exactCountCapPolicy(),
		untaggedCreatePolicy(),
	}
}

// createCapPolicy refuses runs that would create an implausible number of
// machines in one pass; a fat-fingered count should not drain an account.
func createCapPolicy() Policy {
	return Policy{
		Name:        "machine-create-cap",
		Description: "Caps the number of machines created in a single run",
		Severity:    SeverityError,
		Enabled:     true,
		Rego: `package machinesdc.policies.createcap

import rego.v1

max_create := 50

deny contains violation if {
	input.plan.operation == "create"
	input.plan.create_count > max_create
	violation := {
		"message": sprintf("refusing to create %d machines in one run (cap %d)", [input.plan.create_count, max_create]),
		"severity": "error",
	}
}
`,
	}
}

// exactCountCapPolicy bounds the exact-count target.
func exactCountCapPolicy() Policy {
	return Policy{
		Name:        "exact-count-cap",
		Description: "Caps the exact-count reconciliation target",
		Severity:    SeverityError,
		Enabled:     true,
		Rego: `package machinesdc.policies.exactcountcap

import rego.v1

max_target := 200

deny contains violation if {
	input.plan.operation == "create"
	input.plan.target_count > max_target
	violation := {
		"message": sprintf("exact_count target %d exceeds cap %d", [input.plan.target_count, max_target]),
		"severity": "error",
	}
}
`,
	}
}

// untaggedCreatePolicy warns about machines created without any tags,
// since untagged machines cannot be selected for later reconciliation or
// deletion.
func untaggedCreatePolicy() Policy {
	return Policy{
		Name:        "untagged-machines",
		Description: "Warns when machines are created without tags",
		Severity:    SeverityWarning,
		Enabled:     true,
		Rego: `package machinesdc.policies.untagged

import rego.v1

deny contains violation if {
	input.plan.operation == "create"
	input.plan.create_count > 0
	count(object.keys(object.get(input.plan, "tags", {}))) == 0
	count(object.keys(object.get(input.plan, "count_tag", {}))) == 0
	violation := {
		"message": "machines created without tags cannot be found by tag selectors later",
		"severity": "warning",
	}
}
`,
	}
}
