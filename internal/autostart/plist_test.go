package autostart

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildPlist_ArgvElements(t *testing.T) {
	workDir := absPath("Monitor Tools")
	cfgPath := filepath.Join(absPath("My Configs"), "config.yaml")

	d := testDescriptor()
	d.Executable = filepath.Join(workDir, "monitor-listener")
	d.Arguments = []string{"-config", cfgPath}
	d.WorkingDirectory = workDir

	body, err := buildPlist("com.monitormqtt.listener", d)
	if err != nil {
		t.Fatal(err)
	}
	s := string(body)

	// Each argv element is its own <string>; paths with spaces stay whole.
	for _, want := range []string{
		"<string>" + d.Executable + "</string>",
		"<string>-config</string>",
		"<string>" + cfgPath + "</string>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("plist missing %s", want)
		}
	}
	if !strings.Contains(s, "<integer>60</integer>") {
		t.Error("throttle interval missing or not 60 seconds")
	}
}

func TestBuildPlist_EscapesXML(t *testing.T) {
	d := testDescriptor()
	d.Arguments = []string{"-config", "a&b/<cfg>.yaml"}

	body, err := buildPlist("com.monitormqtt.listener", d)
	if err != nil {
		t.Fatal(err)
	}
	s := string(body)

	if !strings.Contains(s, "<string>a&amp;b/&lt;cfg&gt;.yaml</string>") {
		t.Errorf("special characters not escaped:\n%s", s)
	}
	if strings.Contains(s, "<string>a&b/") {
		t.Error("raw ampersand leaked into the document")
	}
}

func TestBuildPlist_InvalidDescriptor(t *testing.T) {
	d := testDescriptor()
	d.Executable = ""
	if _, err := buildPlist("com.monitormqtt.listener", d); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}
