package autostart

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// plistTemplate is the launchd job definition written during installation.
// launchd has no bounded restart count; KeepAlive on unsuccessful exit plus
// ThrottleInterval approximates the restart-every-minute policy.
const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{label}</string>
    <key>ProgramArguments</key>
    <array>
{programArgs}    </array>
    <key>WorkingDirectory</key>
    <string>{workDir}</string>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <dict>
        <key>SuccessfulExit</key>
        <false/>
    </dict>
    <key>ThrottleInterval</key>
    <integer>{throttle}</integer>
</dict>
</plist>
`

// buildPlist renders the descriptor as a launchd property list. Each argv
// element becomes its own <string>, so paths with spaces stay intact, and all
// spliced values are XML-escaped. Kept free of build tags so the generated
// document can be verified on any platform.
func buildPlist(label string, d Descriptor) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var args strings.Builder
	fmt.Fprintf(&args, "        <string>%s</string>\n", xmlEscape(d.Executable))
	for _, a := range d.Arguments {
		fmt.Fprintf(&args, "        <string>%s</string>\n", xmlEscape(a))
	}

	plist := strings.NewReplacer(
		"{label}", xmlEscape(label),
		"{programArgs}", args.String(),
		"{workDir}", xmlEscape(d.WorkingDirectory),
		"{throttle}", strconv.Itoa(int(d.Restart.Interval.Seconds())),
	).Replace(plistTemplate)

	return []byte(plist), nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
