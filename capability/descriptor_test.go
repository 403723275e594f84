package capability

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		errorMsg    string
	}{
		{
			name:  "simple name",
			input: "weather",
		},
		{
			name:  "dots dashes underscores",
			input: "crm.lookup-v2_beta",
		},
		{
			name:  "single character",
			input: "a",
		},
		{
			name:        "empty name",
			input:       "",
			expectError: true,
			errorMsg:    "empty name",
		},
		{
			name:        "too long",
			input:       strings.Repeat("a", MaxNameLength+1),
			expectError: true,
			errorMsg:    "name too long",
		},
		{
			name:        "spaces rejected",
			input:       "weather lookup",
			expectError: true,
			errorMsg:    "invalid name characters",
		},
		{
			name:        "slash rejected",
			input:       "crm/lookup",
			expectError: true,
			errorMsg:    "invalid name characters",
		},
		{
			name:        "colon rejected",
			input:       "crm:lookup",
			expectError: true,
			errorMsg:    "invalid name characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
			}
		})
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name        string
		descriptor  Descriptor
		expectError bool
		errorMsg    string
	}{
		{
			name: "no parameters",
			descriptor: Descriptor{
				Name: "ping",
			},
		},
		{
			name: "all permitted types",
			descriptor: Descriptor{
				Name: "kitchen-sink",
				Parameters: []ParameterSpec{
					{Name: "s", Type: TypeString},
					{Name: "i", Type: TypeInt},
					{Name: "f", Type: TypeFloat},
					{Name: "b", Type: TypeBool},
					{Name: "o", Type: TypeObject},
					{Name: "a", Type: TypeArray},
					{Name: "x", Type: TypeAny},
				},
			},
		},
		{
			name: "invalid name",
			descriptor: Descriptor{
				Name: "not valid!",
			},
			expectError: true,
			errorMsg:    "invalid name characters",
		},
		{
			name: "unnamed parameter",
			descriptor: Descriptor{
				Name: "lookup",
				Parameters: []ParameterSpec{
					{Type: TypeString},
				},
			},
			expectError: true,
			errorMsg:    "parameter with no name",
		},
		{
			name: "duplicate parameter",
			descriptor: Descriptor{
				Name: "lookup",
				Parameters: []ParameterSpec{
					{Name: "city", Type: TypeString},
					{Name: "city", Type: TypeInt},
				},
			},
			expectError: true,
			errorMsg:    `parameter "city" twice`,
		},
		{
			name: "unknown type",
			descriptor: Descriptor{
				Name: "lookup",
				Parameters: []ParameterSpec{
					{Name: "city", Type: "text"},
				},
			},
			expectError: true,
			errorMsg:    `unknown type "text"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.descriptor.Validate()

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
			}
		})
	}
}

func TestSchemaEqual(t *testing.T) {
	base := Descriptor{
		Name:        "weather",
		Description: "Current conditions for a city",
		Parameters: []ParameterSpec{
			{Name: "city", Type: TypeString, Required: true, Description: "City name"},
			{Name: "units", Type: TypeString, Required: false},
		},
	}

	tests := []struct {
		name  string
		other Descriptor
		equal bool
	}{
		{
			name:  "identical",
			other: base,
			equal: true,
		},
		{
			name: "description differences ignored",
			other: Descriptor{
				Name:        "weather",
				Description: "Completely different blurb",
				Parameters: []ParameterSpec{
					{Name: "city", Type: TypeString, Required: true, Description: "Town"},
					{Name: "units", Type: TypeString},
				},
			},
			equal: true,
		},
		{
			name: "different capability name",
			other: Descriptor{
				Name: "forecast",
				Parameters: []ParameterSpec{
					{Name: "city", Type: TypeString, Required: true},
					{Name: "units", Type: TypeString},
				},
			},
			equal: false,
		},
		{
			name: "parameter order matters",
			other: Descriptor{
				Name: "weather",
				Parameters: []ParameterSpec{
					{Name: "units", Type: TypeString},
					{Name: "city", Type: TypeString, Required: true},
				},
			},
			equal: false,
		},
		{
			name: "type differs",
			other: Descriptor{
				Name: "weather",
				Parameters: []ParameterSpec{
					{Name: "city", Type: TypeObject, Required: true},
					{Name: "units", Type: TypeString},
				},
			},
			equal: false,
		},
		{
			name: "required flag differs",
			other: Descriptor{
				Name: "weather",
				Parameters: []ParameterSpec{
					{Name: "city", Type: TypeString, Required: true},
					{Name: "units", Type: TypeString, Required: true},
				},
			},
			equal: false,
		},
		{
			name: "parameter count differs",
			other: Descriptor{
				Name: "weather",
				Parameters: []ParameterSpec{
					{Name: "city", Type: TypeString, Required: true},
				},
			},
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.SchemaEqual(tt.other); got != tt.equal {
				t.Errorf("SchemaEqual = %v, want %v", got, tt.equal)
			}
			// Equality is symmetric
			if got := tt.other.SchemaEqual(base); got != tt.equal {
				t.Errorf("SchemaEqual (reversed) = %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestParameter(t *testing.T) {
	desc := Descriptor{
		Name: "weather",
		Parameters: []ParameterSpec{
			{Name: "city", Type: TypeString, Required: true},
			{Name: "units", Type: TypeString},
		},
	}

	spec, ok := desc.Parameter("city")
	if !ok {
		t.Fatal("Expected parameter 'city' to be found")
	}
	if spec.Type != TypeString || !spec.Required {
		t.Errorf("Unexpected spec for 'city': %+v", spec)
	}

	if _, ok := desc.Parameter("zip"); ok {
		t.Error("Expected parameter 'zip' to be missing")
	}
}
