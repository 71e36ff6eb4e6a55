package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program listenin shells out to.
type Tool struct {
	Name        string
	VersionFlag string
	Purpose     string
	// Required tools are needed to record at all.
	Required bool
}

// Tools lists every external program, required ones first.
var Tools = []Tool{
	{Name: "pw-record", VersionFlag: "--version", Purpose: "audio capture", Required: true},
	{Name: "pw-cli", VersionFlag: "--version", Purpose: "capture device probe", Required: true},
	{Name: "notify-send", VersionFlag: "--version", Purpose: "desktop notifications"},
}

// Check looks up a tool on PATH and reads the first line of its version output.
func Check(t Tool) Status {
	return check(t.Name, t.VersionFlag)
}

func check(name, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	if versionFlag == "" {
		return status
	}
	output, err := exec.Command(path, versionFlag).CombinedOutput()
	if err == nil {
		lines := strings.Split(strings.TrimSpace(string(output)), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}

// Result pairs a tool with its status.
type Result struct {
	Tool   Tool
	Status Status
}

// CheckAll checks every tool in Tools.
func CheckAll() []Result {
	results := make([]Result, 0, len(Tools))
	for _, t := range Tools {
		results = append(results, Result{Tool: t, Status: Check(t)})
	}
	return results
}

// MissingRequired returns the names of required tools that are not installed.
func MissingRequired(results []Result) []string {
	var missing []string
	for _, r := range results {
		if r.Tool.Required && !r.Status.Installed {
			missing = append(missing, r.Tool.Name)
		}
	}
	return missing
}
