package config

// machineSchema is the CUE schema every .cue configuration must unify
// with. It mirrors the Config struct: optional fields stay optional here
// so defaulting happens in Go, not CUE.
const machineSchema = `
#Machine: {
	machine_id?:      string
	name?:            string
	location:         string & !=""
	account:          string & !=""
	key_id:           string & !=""
	secret_key_path?: string
	image?:           string
	package?:         string
	networks?: [...string]
	count?:       int & >=0
	exact_count?: int & >=0
	count_tag?: {[string]: string}
	tags?: {[string]: string}
	wait?:         bool
	wait_timeout?: int & >0
	state?: "present" | "absent"
}
`
