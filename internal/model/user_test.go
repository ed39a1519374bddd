package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleManager, true},
		{RoleAdmin, RoleUser, true},
		{RoleManager, RoleAdmin, false},
		{RoleManager, RoleManager, true},
		{RoleManager, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleUser, RoleManager, false},
		{RoleUser, RoleUser, true},
		// Unknown roles fail-closed.
		{"unknown", RoleUser, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleUser, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestItemTypeValid(t *testing.T) {
	if !ItemTypeSale.Valid() || !ItemTypeAsset.Valid() {
		t.Error("expected SALE and ASSET to be valid item types")
	}
	if ItemType("GIFT").Valid() {
		t.Error("expected unknown item type to be invalid")
	}
}

func TestItemStatusValid(t *testing.T) {
	for _, s := range AllItemStatuses {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if ItemStatus("LOST").Valid() {
		t.Error("expected LOST to be invalid")
	}
}

func TestInitialStatus(t *testing.T) {
	if got := ItemTypeSale.InitialStatus(); got != StatusInStock {
		t.Errorf("sale item initial status = %s, want %s", got, StatusInStock)
	}
	if got := ItemTypeAsset.InitialStatus(); got != StatusInWarehouse {
		t.Errorf("asset initial status = %s, want %s", got, StatusInWarehouse)
	}
}
