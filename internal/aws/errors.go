package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// notFoundCodes are the API error codes that mean "the resource does not exist"
var notFoundCodes = map[string]bool{
	"ResourceNotFoundException":  true,
	"NoSuchEntity":               true,
	"DBInstanceNotFound":         true,
	"DBSubnetGroupNotFoundFault": true,
	"InvalidGroup.NotFound":      true,
}

// IsNotFound reports whether the error means the referenced resource is absent
func IsNotFound(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return notFoundCodes[ae.ErrorCode()]
	}
	return false
}

// IsDuplicate reports whether the error means an identical resource or rule
// already exists, which Ensure operations treat as success
func IsDuplicate(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "InvalidPermission.Duplicate", "EntityAlreadyExists", "ResourceExistsException", "DBInstanceAlreadyExists":
			return true
		}
	}
	return false
}
