// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package enclave

import (
	"errors"
	"testing"
)

func TestParseLaunchReport(t *testing.T) {
	for _, tc := range []struct {
		name    string
		report  string
		wantID  string
		wantCID uint32
		wantErr bool
	}{
		{
			name:    "valid",
			report:  `{"EnclaveID": "i-abc-enc123", "EnclaveCID": 42}`,
			wantID:  "i-abc-enc123",
			wantCID: 42,
		},
		{
			name:    "extra fields ignored",
			report:  `{"EnclaveName": "app", "EnclaveID": "i-abc-enc123", "ProcessID": 12, "EnclaveCID": 16, "NumberOfCPUs": 2}`,
			wantID:  "i-abc-enc123",
			wantCID: 16,
		},
		{
			name:    "quoting artifacts stripped",
			report:  `{"EnclaveID": "\"i-abc-enc123\"", "EnclaveCID": 42}`,
			wantID:  "i-abc-enc123",
			wantCID: 42,
		},
		{name: "missing cid", report: `{"EnclaveID": "i-abc-enc123"}`, wantErr: true},
		{name: "non-numeric cid", report: `{"EnclaveID": "i-abc-enc123", "EnclaveCID": "42"}`, wantErr: true},
		{name: "fractional cid", report: `{"EnclaveID": "i-abc-enc123", "EnclaveCID": 42.5}`, wantErr: true},
		{name: "missing id", report: `{"EnclaveCID": 42}`, wantErr: true},
		{name: "not json", report: `Started enclave with enclave-cid: 42`, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			id, cid, err := parseLaunchReport([]byte(tc.report))
			if tc.wantErr {
				if !errors.Is(err, ErrMalformedReport) {
					t.Fatalf("err=%v, want ErrMalformedReport", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLaunchReport: %v", err)
			}
			if id != tc.wantID {
				t.Errorf("id=%q, want %q", id, tc.wantID)
			}
			if cid != tc.wantCID {
				t.Errorf("cid=%d, want %d", cid, tc.wantCID)
			}
		})
	}
}
