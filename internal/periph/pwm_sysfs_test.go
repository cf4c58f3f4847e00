package periph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSysfs creates root/pwmchip0/pwm<channel> so no export is needed.
func fakeSysfs(t *testing.T, channel string) (root, dir string) {
	t.Helper()
	root = t.TempDir()
	dir = filepath.Join(root, "pwmchip0", "pwm"+channel)
	require.NoError(t, os.MkdirAll(dir, 0755))
	return root, dir
}

func readAttr(t *testing.T, dir, attr string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, attr))
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func TestSysfsPWMOpen(t *testing.T) {
	root, dir := fakeSysfs(t, "0")

	p, err := OpenSysfsPWM(root, 0, 0, 50, 1023)
	require.NoError(t, err)

	assert.Equal(t, "20000000", readAttr(t, dir, "period"))
	assert.Equal(t, "0", readAttr(t, dir, "duty_cycle"))
	assert.Equal(t, "1", readAttr(t, dir, "enable"))

	duty, err := p.Duty()
	require.NoError(t, err)
	assert.Equal(t, 0, duty)
}

func TestSysfsPWMDutyScales(t *testing.T) {
	root, dir := fakeSysfs(t, "0")

	p, err := OpenSysfsPWM(root, 0, 0, 50, 1023)
	require.NoError(t, err)

	require.NoError(t, p.SetDuty(512))
	assert.Equal(t, "10009775", readAttr(t, dir, "duty_cycle"))

	// Changing frequency keeps the ratio.
	require.NoError(t, p.SetFrequency(1500))
	assert.Equal(t, "666666", readAttr(t, dir, "period"))
	assert.Equal(t, "333658", readAttr(t, dir, "duty_cycle"))

	duty, _ := p.Duty()
	assert.Equal(t, 512, duty)
}

func TestSysfsPWMClampsDuty(t *testing.T) {
	root, dir := fakeSysfs(t, "1")

	p, err := OpenSysfsPWM(root, 0, 1, 5000, 1023)
	require.NoError(t, err)

	require.NoError(t, p.SetDuty(5000))
	duty, _ := p.Duty()
	assert.Equal(t, 1023, duty)
	assert.Equal(t, "200000", readAttr(t, dir, "duty_cycle"))

	require.NoError(t, p.SetDuty(-4))
	duty, _ = p.Duty()
	assert.Equal(t, 0, duty)
}

func TestSysfsPWMClose(t *testing.T) {
	root, dir := fakeSysfs(t, "0")

	p, err := OpenSysfsPWM(root, 0, 0, 50, 1023)
	require.NoError(t, err)
	require.NoError(t, p.SetDuty(300))

	require.NoError(t, p.Close())
	assert.Equal(t, "0", readAttr(t, dir, "duty_cycle"))
	assert.Equal(t, "0", readAttr(t, dir, "enable"))
}

func TestSysfsPWMInvalidFrequency(t *testing.T) {
	root, _ := fakeSysfs(t, "0")

	p, err := OpenSysfsPWM(root, 0, 0, 50, 1023)
	require.NoError(t, err)

	err = p.SetFrequency(0)
	assert.True(t, IsFault(err), "expected a Fault, got %v", err)
}

func TestSysfsPWMMissingChannelIsFault(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pwmchip0"), 0755))

	// Export is written but no channel directory appears.
	_, err := OpenSysfsPWM(root, 0, 3, 50, 1023)
	require.Error(t, err)
	assert.True(t, IsFault(err))
	assert.Equal(t, "3", readAttr(t, filepath.Join(root, "pwmchip0"), "export"))
}

func TestSysfsPWMRejectsBadDutyMax(t *testing.T) {
	root, _ := fakeSysfs(t, "0")
	_, err := OpenSysfsPWM(root, 0, 0, 50, 0)
	assert.Error(t, err)
}
