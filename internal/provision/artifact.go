package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigScript renders the Avaya .phn provisioning script: username,
// password, then the group-scoped settings fetch.
func ConfigScript(rec Record, password string) string {
	return fmt.Sprintf("SET SIPUSERNAME %s\nSET SIPUSERPASSWORD %s\nGET /mdm/%s/avaya/rw-sikt.txt",
		rec.Number, password, rec.GroupCode)
}

// ConfigDescriptor renders the Ascom device descriptor. The importer
// on the other side expects exactly this shape, two-space indented.
func ConfigDescriptor(rec Record) ([]byte, error) {
	return json.MarshalIndent(map[string]string{"voip_device_id": rec.Number}, "", "  ")
}

// WriteArtifacts emits both provisioning artifacts for rec into the
// session arena, named by the record key.
func (s *Session) WriteArtifacts(rec Record, password string) error {
	script := ConfigScript(rec, password)
	phnPath := filepath.Join(s.root, AreaAvaya, rec.GroupCode+rec.Key+".phn")
	if err := os.WriteFile(phnPath, []byte(script), 0o644); err != nil {
		return fmt.Errorf("write phn: %w", err)
	}

	descriptor, err := ConfigDescriptor(rec)
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	jsonPath := filepath.Join(s.root, AreaAscom, rec.Key+".json")
	if err := os.WriteFile(jsonPath, descriptor, 0o644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	return nil
}
