// Package converter turns a commissioning workbook into the programming JSON
// consumed by the room config store. It is the reference converter spawned
// by the ingestion pipeline through cmd/xlsx2json.
package converter

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetMatch selects the sheets that carry programming details.
const DefaultSheetMatch = "Programming Details"

// ErrNoProgrammingSheet is returned when no sheet name contains the match.
var ErrNoProgrammingSheet = errors.New("workbook has no programming details sheet")

// Section headings inside the programming details sheet.
const (
	headingDevices        = "KASTA DEVICE"
	headingGroups         = "KASTA GROUP"
	headingScenes         = "KASTA SCENE"
	headingRemoteControls = "REMOTE CONTROL LINK"
)

// deviceModels are the appearance short names that open a device block.
var deviceModels = map[string]bool{
	"KBSKTDIM": true, "KBSKTREL": true, "S2400IB2": true, "C300IBH": true,
	"H1RSMB": true, "H2RSMB": true, "H3RSMB": true, "H4RSMB": true,
	"H6RSMB": true, "6INPUT": true, "4OUTPUT": true,
}

var sceneKeywords = []string{"BRIGHT", "OFF", "SOFT", "ON", "MOOD"}

// Link types of a remote control button.
const (
	LinkDevice = 0
	LinkGroup  = 1
	LinkScene  = 2
	LinkDND    = 3
)

type Device struct {
	AppearanceShortname string `json:"appearanceShortname"`
	DeviceName          string `json:"deviceName"`
}

type Group struct {
	GroupName string   `json:"groupName"`
	Devices   []string `json:"devices"`
}

type StatusConditions struct {
	Level int `json:"level"`
}

type SceneContent struct {
	Name             string           `json:"name"`
	Status           string           `json:"status"`
	StatusConditions StatusConditions `json:"statusConditions"`
}

type Scene struct {
	SceneName string         `json:"sceneName"`
	Contents  []SceneContent `json:"contents"`
}

type Link struct {
	LinkIndex int    `json:"linkIndex"`
	LinkType  int    `json:"linkType"`
	LinkName  string `json:"linkName"`
}

type RemoteControl struct {
	RemoteName string `json:"remoteName"`
	Links      []Link `json:"links"`
}

// Programming is the converter output document.
type Programming struct {
	Devices        []Device        `json:"devices"`
	Groups         []Group         `json:"groups"`
	Scenes         []Scene         `json:"scenes"`
	RemoteControls []RemoteControl `json:"remoteControls"`
}

// Convert reads a workbook from r and builds its programming document.
func Convert(r io.Reader, sheetMatch string) (*Programming, error) {
	if sheetMatch == "" {
		sheetMatch = DefaultSheetMatch
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	lines, err := ExtractLines(f, sheetMatch)
	if err != nil {
		return nil, err
	}
	return Build(lines)
}

// ExtractLines collects the text lines of every matching sheet. The first row
// of a sheet is its header and is skipped; cells are read row by row and only
// text cells contribute. When several sheets match, the last one wins.
func ExtractLines(f *excelize.File, sheetMatch string) ([]string, error) {
	var lines []string
	found := false
	for _, sheet := range f.GetSheetList() {
		if !strings.Contains(sheet, sheetMatch) {
			continue
		}
		found = true

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		lines = lines[:0]
		for r := 1; r < len(rows); r++ {
			for c, value := range rows[r] {
				if value == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, err
				}
				kind, err := f.GetCellType(sheet, cell)
				if err != nil {
					return nil, fmt.Errorf("cell %s!%s: %w", sheet, cell, err)
				}
				if kind != excelize.CellTypeSharedString && kind != excelize.CellTypeInlineString {
					continue
				}
				lines = append(lines, splitCell(value)...)
			}
		}
	}
	if !found {
		return nil, ErrNoProgrammingSheet
	}
	return lines, nil
}

var cellReplacer = strings.NewReplacer(
	"（", "(",
	"）", ")",
	"：", ":",
)

func splitCell(value string) []string {
	value = cellReplacer.Replace(value)
	value = strings.ReplaceAll(value, "AK", "")
	value = strings.ReplaceAll(value, "ES", "")

	var out []string
	for _, part := range strings.Split(value, "\n") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Build splits the extracted lines into sections and parses each one. Lines
// before the first section heading are ignored.
func Build(lines []string) (*Programming, error) {
	sections := map[string][]string{}
	current := ""
	for _, line := range lines {
		switch line {
		case headingDevices, headingGroups, headingScenes, headingRemoteControls:
			current = line
			continue
		}
		if current != "" {
			sections[current] = append(sections[current], line)
		}
	}

	remotes, err := parseRemoteControls(sections[headingRemoteControls])
	if err != nil {
		return nil, err
	}
	return &Programming{
		Devices:        parseDevices(sections[headingDevices]),
		Groups:         parseGroups(sections[headingGroups]),
		Scenes:         parseScenes(sections[headingScenes]),
		RemoteControls: remotes,
	}, nil
}

func parseDevices(lines []string) []Device {
	devices := []Device{}
	current := ""
	for _, line := range lines {
		if strings.Contains(line, "(") && strings.Contains(line, ")") {
			continue
		}
		if strings.HasPrefix(line, "QTY:") || line == "NAME:" {
			continue
		}
		if deviceModels[line] {
			current = line
			continue
		}
		if current != "" {
			devices = append(devices, Device{AppearanceShortname: current, DeviceName: line})
		}
	}
	return devices
}

func parseGroups(lines []string) []Group {
	groups := []Group{}
	for _, line := range lines {
		if strings.HasPrefix(line, "TOTAL 0 GROUP") {
			break
		}
		if strings.HasPrefix(line, "TOTAL") || strings.HasPrefix(line, "DEVICE CONTROL") || strings.Contains(line, "GROUP") {
			continue
		}
		groups = append(groups, Group{GroupName: line, Devices: []string{}})
	}
	return groups
}

func parseScenes(lines []string) []Scene {
	scenes := []Scene{}
	var name string
	var controls []string

	// a scene without a name is dropped together with its controls
	flush := func() {
		if name != "" {
			scenes = append(scenes, Scene{SceneName: name, Contents: parseSceneContents(controls)})
		}
	}
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "TOTAL"), strings.HasPrefix(line, "CONTROL CONTENT:"):
			continue
		case strings.HasPrefix(line, "NAME:"):
			flush()
			name = strings.TrimSpace(strings.ReplaceAll(line, "NAME: ", ""))
			controls = nil
		default:
			controls = append(controls, line)
		}
	}
	flush()
	return scenes
}

// parseSceneContents reads "<name> <status> [+ <level>%]" lines.
func parseSceneContents(lines []string) []SceneContent {
	contents := []SceneContent{}
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		level := 0
		if parts[1] == "ON" {
			level = 100
		}
		if len(parts) > 2 {
			for i, p := range parts {
				if p != "+" {
					continue
				}
				if i+1 < len(parts) {
					if n, err := strconv.Atoi(strings.ReplaceAll(parts[i+1], "%", "")); err == nil {
						level = n
					}
				}
				break
			}
		}
		contents = append(contents, SceneContent{
			Name:             parts[0],
			Status:           parts[1],
			StatusConditions: StatusConditions{Level: level},
		})
	}
	return contents
}

func parseRemoteControls(lines []string) ([]RemoteControl, error) {
	remotes := []RemoteControl{}
	var current *RemoteControl

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "TOTAL"):
			continue
		case strings.HasPrefix(line, "NAME:"):
			if current != nil && current.RemoteName != "" {
				remotes = append(remotes, *current)
			}
			current = &RemoteControl{
				RemoteName: strings.TrimSpace(strings.ReplaceAll(line, "NAME: ", "")),
				Links:      []Link{},
			}
		case strings.HasPrefix(line, "BUTTON"):
			link, err := parseButton(line)
			if err != nil {
				return nil, err
			}
			if current != nil {
				current.Links = append(current.Links, link)
			}
		}
	}
	if current != nil && current.RemoteName != "" {
		remotes = append(remotes, *current)
	}
	return remotes, nil
}

// parseButton reads "BUTTON <n>: <target>"; buttons are numbered from 1.
func parseButton(line string) (Link, error) {
	parts := strings.Split(line, ":")
	if len(parts) < 2 {
		return Link{}, fmt.Errorf("remote control button %q has no target", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(parts[0], "BUTTON", "")))
	if err != nil {
		return Link{}, fmt.Errorf("remote control button %q: %w", line, err)
	}
	target := strings.TrimSpace(parts[1])

	linkType := LinkDevice
	switch {
	case containsAny(target, sceneKeywords):
		linkType = LinkScene
	case strings.Contains(target, "DND"):
		linkType = LinkDND
	case strings.Contains(target, "GROUP"):
		linkType = LinkGroup
	}
	for _, prefix := range []string{"SCENE ", "DEVICE ", "GROUP "} {
		if strings.HasPrefix(target, prefix) {
			target = strings.TrimSpace(target[len(prefix):])
		}
	}
	return Link{LinkIndex: n - 1, LinkType: linkType, LinkName: target}, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
