package converter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook builds an xlsx with one sheet whose first column holds cells.
func workbook(t *testing.T, sheet string, cells ...interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))

	require.NoError(t, f.SetCellValue(sheet, "A1", "header"))
	for i, v := range cells {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestConvertFullWorkbook(t *testing.T) {
	data := workbook(t, "Programming Details",
		"intro line",
		"KASTA DEVICE",
		"QTY: 2",
		"KBSKTDIM\nLiving Light",
		"(dimmer)",
		"NAME:",
		"Bed Light",
		"H2RSMB",
		"Entry Switch",
		"KASTA GROUP",
		"TOTAL 2 GROUP",
		"All Lights",
		"DEVICE CONTROL",
		"GROUP A",
		"Bedroom",
		"TOTAL 0 GROUP",
		"Ignored",
		"KASTA SCENE",
		"TOTAL 1",
		"NAME: Welcome",
		"CONTROL CONTENT:",
		"Living ON",
		"Bed ON + 40%",
		"Hall OFF",
		"x",
		"REMOTE CONTROL LINK",
		"TOTAL 1",
		"NAME: Door Remote",
		"BUTTON 1: BRIGHT",
		"BUTTON 2: GROUP All Lights",
		"BUTTON 3: DND",
		"BUTTON 4: DEVICE Bed Light",
		42,
	)

	prog, err := Convert(bytes.NewReader(data), "")
	require.NoError(t, err)

	assert.Equal(t, []Device{
		{AppearanceShortname: "KBSKTDIM", DeviceName: "Living Light"},
		{AppearanceShortname: "KBSKTDIM", DeviceName: "Bed Light"},
		{AppearanceShortname: "H2RSMB", DeviceName: "Entry Switch"},
	}, prog.Devices)

	assert.Equal(t, []Group{
		{GroupName: "All Lights", Devices: []string{}},
		{GroupName: "Bedroom", Devices: []string{}},
	}, prog.Groups)

	require.Len(t, prog.Scenes, 1)
	assert.Equal(t, "Welcome", prog.Scenes[0].SceneName)
	assert.Equal(t, []SceneContent{
		{Name: "Living", Status: "ON", StatusConditions: StatusConditions{Level: 100}},
		{Name: "Bed", Status: "ON", StatusConditions: StatusConditions{Level: 40}},
		{Name: "Hall", Status: "OFF", StatusConditions: StatusConditions{Level: 0}},
	}, prog.Scenes[0].Contents)

	require.Len(t, prog.RemoteControls, 1)
	assert.Equal(t, "Door Remote", prog.RemoteControls[0].RemoteName)
	assert.Equal(t, []Link{
		{LinkIndex: 0, LinkType: LinkScene, LinkName: "BRIGHT"},
		{LinkIndex: 1, LinkType: LinkGroup, LinkName: "All Lights"},
		{LinkIndex: 2, LinkType: LinkDND, LinkName: "DND"},
		{LinkIndex: 3, LinkType: LinkDevice, LinkName: "Bed Light"},
	}, prog.RemoteControls[0].Links)
}

func TestConvertWithoutProgrammingSheet(t *testing.T) {
	data := workbook(t, "Cover", "KASTA DEVICE")

	_, err := Convert(bytes.NewReader(data), "")
	assert.ErrorIs(t, err, ErrNoProgrammingSheet)
}

func TestConvertCustomSheetMatch(t *testing.T) {
	data := workbook(t, "Level 3 Prog", "KASTA GROUP", "Corridor")

	prog, err := Convert(bytes.NewReader(data), "Prog")
	require.NoError(t, err)
	assert.Equal(t, []Group{{GroupName: "Corridor", Devices: []string{}}}, prog.Groups)
	assert.Empty(t, prog.Devices)
	assert.NotNil(t, prog.Scenes)
}

func TestConvertRejectsNonWorkbook(t *testing.T) {
	_, err := Convert(bytes.NewReader([]byte("not a zip")), "")
	assert.Error(t, err)
}

func TestSplitCellNormalizesText(t *testing.T) {
	assert.Equal(t, []string{"QTY:3", "(A)"}, splitCell("QTY：3\n\n  （A）  "))
	assert.Equal(t, []string{"KBSKTDIM"}, splitCell("AKKBSKTDIMES"))
	assert.Nil(t, splitCell("   \n "))
}

func TestBadButtonLineFails(t *testing.T) {
	_, err := Build([]string{"REMOTE CONTROL LINK", "NAME: R", "BUTTON X: SCENE A"})
	assert.Error(t, err)

	_, err = Build([]string{"REMOTE CONTROL LINK", "NAME: R", "BUTTONLESS"})
	assert.Error(t, err)
}

func TestUnnamedBlocksAreDropped(t *testing.T) {
	prog, err := Build([]string{
		"KASTA SCENE", "Orphan ON", "NAME: ", "Hall ON",
		"REMOTE CONTROL LINK", "BUTTON 1: SCENE X", "NAME: R1", "BUTTON 2: OFF",
	})
	require.NoError(t, err)
	assert.Empty(t, prog.Scenes)
	require.Len(t, prog.RemoteControls, 1)
	assert.Equal(t, []Link{{LinkIndex: 1, LinkType: LinkScene, LinkName: "OFF"}}, prog.RemoteControls[0].Links)
}
