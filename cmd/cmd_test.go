package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"vpnbot/xui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakePanel struct {
	probeErr error
	loginErr error
	inbounds []xui.Inbound
	logins   int
}

func (p *fakePanel) Settings() xui.Settings {
	return xui.Settings{URL: "https://panel.example.com:2053", Username: "admin", Password: "secret"}
}

func (p *fakePanel) Probe(context.Context, string) error { return p.probeErr }

func (p *fakePanel) Login(context.Context) error {
	p.logins++
	return p.loginErr
}

func (p *fakePanel) GetInbounds(context.Context) ([]xui.Inbound, error) {
	return p.inbounds, p.loginErr
}

func TestRunPanelCheck(t *testing.T) {
	tests := []struct {
		name     string
		panel    *fakePanel
		code     int
		contains []string
		logins   int
	}{
		{
			name:     "ok",
			panel:    &fakePanel{},
			contains: []string{"Reachable: yes", "Login:     ok"},
			logins:   1,
		},
		{
			name:     "unreachable",
			panel:    &fakePanel{probeErr: &xui.Error{Message: "connection refused", Code: xui.CodeConnRefused}},
			code:     1,
			contains: []string{"Reachable: no (ECONNREFUSED"},
		},
		{
			name:     "bad credentials",
			panel:    &fakePanel{loginErr: &xui.Error{Message: "wrong password", Code: xui.CodeAuthFailed}},
			code:     1,
			contains: []string{"Reachable: yes", "Login:     failed (AUTH_FAILED: wrong password)"},
			logins:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Equal(t, tt.code, runPanelCheck(context.Background(), &out, tt.panel))
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
			assert.NotContains(t, out.String(), "secret", "пароль не должен выводиться")
			assert.Equal(t, tt.logins, tt.panel.logins)
		})
	}
}

func TestRunInbounds(t *testing.T) {
	panel := &fakePanel{inbounds: []xui.Inbound{
		{ID: 1, Remark: "main", Protocol: "vless", Port: 443, Enable: true, Settings: `{"clients":[{"id":"a","email":"a"}]}`},
		{ID: 7, Remark: "backup", Protocol: "trojan", Port: 8443},
	}}

	var out bytes.Buffer
	require.Equal(t, 0, runInbounds(context.Background(), &out, panel))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "REMARK", "PROTOCOL", "PORT", "ENABLED", "CLIENTS"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "main", "vless", "443", "true", "1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"7", "backup", "trojan", "8443", "false", "0"}, strings.Fields(lines[2]))
}

func TestRunInbounds_Error(t *testing.T) {
	panel := &fakePanel{loginErr: &xui.Error{Message: "timeout", Code: xui.CodeTimeout}}

	var out bytes.Buffer
	assert.Equal(t, 1, runInbounds(context.Background(), &out, panel))
	assert.Contains(t, out.String(), "ETIMEDOUT")
}

func TestHashPassword(t *testing.T) {
	var out bytes.Buffer
	hashPasswordCmd.SetOut(&out)
	require.NoError(t, hashPasswordCmd.RunE(hashPasswordCmd, []string{"s3cret-pass"}))

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")))
}

func TestRunServe_InvalidConfigExitCode(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "memory")

	err := runServe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Equal(t, 2, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 2, ExitCode(configError(errors.New("bad config"))))
}
