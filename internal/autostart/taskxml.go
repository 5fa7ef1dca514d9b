package autostart

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// taskXMLNamespace is the Task Scheduler 2.0 schema. schtasks rejects
// definitions without it.
const taskXMLNamespace = "http://schemas.microsoft.com/windows/2004/02/mit/task"

// taskDefinition mirrors the Task Scheduler XML schema. The schtasks command
// line cannot express a restart-on-failure policy, so registration goes through
// the XML form (`schtasks /Create /XML`). Kept free of build tags so the
// generated document can be verified on any platform.
type taskDefinition struct {
	XMLName          xml.Name         `xml:"Task"`
	Version          string           `xml:"version,attr"`
	Xmlns            string           `xml:"xmlns,attr"`
	RegistrationInfo registrationInfo `xml:"RegistrationInfo"`
	Triggers         taskTriggers     `xml:"Triggers"`
	Principals       taskPrincipals   `xml:"Principals"`
	Settings         taskSettings     `xml:"Settings"`
	Actions          taskActions      `xml:"Actions"`
}

type registrationInfo struct {
	Description string `xml:"Description,omitempty"`
}

type taskTriggers struct {
	Logon logonTrigger `xml:"LogonTrigger"`
}

type logonTrigger struct {
	Enabled bool `xml:"Enabled"`
}

type taskPrincipals struct {
	Principal taskPrincipal `xml:"Principal"`
}

type taskPrincipal struct {
	ID        string `xml:"id,attr"`
	LogonType string `xml:"LogonType"`
	RunLevel  string `xml:"RunLevel"`
}

type taskSettings struct {
	MultipleInstancesPolicy    string          `xml:"MultipleInstancesPolicy"`
	DisallowStartIfOnBatteries bool            `xml:"DisallowStartIfOnBatteries"`
	StopIfGoingOnBatteries     bool            `xml:"StopIfGoingOnBatteries"`
	StartWhenAvailable         bool            `xml:"StartWhenAvailable"`
	ExecutionTimeLimit         string          `xml:"ExecutionTimeLimit"`
	RestartOnFailure           *restartSetting `xml:"RestartOnFailure,omitempty"`
	Enabled                    bool            `xml:"Enabled"`
}

type restartSetting struct {
	Interval string `xml:"Interval"`
	Count    int    `xml:"Count"`
}

type taskActions struct {
	Context string     `xml:"Context,attr"`
	Exec    execAction `xml:"Exec"`
}

type execAction struct {
	Command          string `xml:"Command"`
	Arguments        string `xml:"Arguments,omitempty"`
	WorkingDirectory string `xml:"WorkingDirectory,omitempty"`
}

// buildTaskXML renders the descriptor as a Task Scheduler definition.
// The descriptor is validated first; a malformed one produces ErrInvalidArgument
// and no document.
func buildTaskXML(d Descriptor) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	def := taskDefinition{
		Version: "1.2",
		Xmlns:   taskXMLNamespace,
		RegistrationInfo: registrationInfo{
			Description: d.Description,
		},
		Triggers: taskTriggers{
			Logon: logonTrigger{Enabled: true},
		},
		Principals: taskPrincipals{
			Principal: taskPrincipal{
				ID:        "Author",
				LogonType: "InteractiveToken",
				RunLevel:  "LeastPrivilege",
			},
		},
		Settings: taskSettings{
			MultipleInstancesPolicy:    "IgnoreNew",
			DisallowStartIfOnBatteries: !d.Power.AllowOnBattery,
			StopIfGoingOnBatteries:     d.Power.StopOnBattery,
			StartWhenAvailable:         true,
			ExecutionTimeLimit:         "PT0S", // no time limit; the listener runs indefinitely
			Enabled:                    true,
		},
		Actions: taskActions{
			Context: "Author",
			Exec: execAction{
				Command:          d.Executable,
				Arguments:        joinArgs(d.Arguments),
				WorkingDirectory: d.WorkingDirectory,
			},
		},
	}

	if d.Restart.MaxRestarts > 0 {
		def.Settings.RestartOnFailure = &restartSetting{
			Interval: isoDuration(d.Restart.Interval),
			Count:    d.Restart.MaxRestarts,
		}
	}

	body, err := xml.MarshalIndent(def, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling task definition: %v", ErrInvalidArgument, err)
	}
	return []byte(xml.Header + string(body) + "\n"), nil
}

// isoDuration formats a duration as an ISO 8601 duration string (PT1M, PT90S),
// the form the Task Scheduler schema expects.
func isoDuration(d time.Duration) string {
	d = d.Round(time.Second)
	var b strings.Builder
	b.WriteString("PT")
	if h := int(d.Hours()); h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= time.Duration(h) * time.Hour
	}
	if m := int(d.Minutes()); m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= time.Duration(m) * time.Minute
	}
	if s := int(d.Seconds()); s > 0 || b.String() == "PT" {
		fmt.Fprintf(&b, "%dS", s)
	}
	return b.String()
}
