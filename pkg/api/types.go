package api

const (
	DefaultManifestFile = "buildsteps.yml"

	KeyEnv           = "env"
	KeyCommands      = "commands"
	KeyRun           = "run"
	KeyAlwaysSucceed = "always-succeed"
)

// ManifestFileNames are the file names FindManifest looks for, in order.
var ManifestFileNames = []string{DefaultManifestFile, "buildsteps.yaml", ".buildsteps.yml"}

// Manifest is the parsed CI manifest: global defaults plus jobs in declaration order.
type Manifest struct {
	Env  map[string]string
	Jobs []*Job

	// Set by the loader, not from YAML.
	FilePath string
}

// Job is a named, ordered list of steps run with a shared environment.
type Job struct {
	Name  string
	Env   map[string]string
	Steps []Step

	// Retired jobs have no steps. They stay in the manifest for name
	// continuity and are never executed.
	Retired bool
}

// Step is one command line within a job.
type Step struct {
	Run string

	// AlwaysSucceed records a failure of this step without failing the job.
	AlwaysSucceed bool
}

// Names returns the job names in declaration order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Jobs))
	for _, j := range m.Jobs {
		names = append(names, j.Name)
	}
	return names
}

// Job returns the job with the given name.
func (m *Manifest) Job(name string) (*Job, bool) {
	for _, j := range m.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return nil, false
}

// Commands returns the command lines of the job in order.
func (j *Job) Commands() []string {
	cmds := make([]string, 0, len(j.Steps))
	for _, s := range j.Steps {
		cmds = append(cmds, s.Run)
	}
	return cmds
}
