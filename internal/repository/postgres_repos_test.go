package repository

import (
	"encoding/json"
	"testing"
)

// PostgresCredentialRepoはCredentialRepositoryインターフェースを満たすことを検証
func TestPostgresCredentialRepo_ImplementsInterface(t *testing.T) {
	var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
}

// PostgresRecordRepoはRecordRepositoryインターフェースを満たすことを検証
func TestPostgresRecordRepo_ImplementsInterface(t *testing.T) {
	var _ RecordRepository = (*PostgresRecordRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

func TestNewPostgresCredentialRepo_Initializes(t *testing.T) {
	if repo := NewPostgresCredentialRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresRecordRepo_Initializes(t *testing.T) {
	if repo := NewPostgresRecordRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	if repo := NewPostgresSessionRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// nilマップがJSONBカラム用に空オブジェクトへ正規化されることを検証
func TestMarshalSessionData_NilMap_EncodesEmptyObject(t *testing.T) {
	encoded, err := marshalSessionData(nil)
	if err != nil {
		t.Fatalf("marshalSessionData returned error: %v", err)
	}
	if string(encoded) != "{}" {
		t.Errorf("encoded = %q, want {}", encoded)
	}
}

func TestMarshalSessionData_RoundTrips(t *testing.T) {
	data := map[string]string{
		"current_subject":  "数学",
		"study_start_time": "2026-03-10 09:00:00",
	}

	encoded, err := marshalSessionData(data)
	if err != nil {
		t.Fatalf("marshalSessionData returned error: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded["current_subject"] != "数学" {
		t.Errorf("decoded = %v, want current_subject=数学", decoded)
	}
}
