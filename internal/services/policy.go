package services

import (
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7/pkg/policy"
)

// Bucket policy classifications
const (
	PolicyPrivate         = "private"
	PolicyPublicRead      = "public-read"
	PolicyPublicReadWrite = "public-read-write"
	PolicyCustom          = "custom"
)

func presetPolicy(bucketName string, actions ...string) string {
	actionsJSON, _ := json.Marshal(actions)
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"AWS": ["*"]},
      "Action": %s,
      "Resource": ["arn:aws:s3:::%s/*"]
    }
  ]
}`, actionsJSON, bucketName)
}

// canonicalJSON re-encodes a JSON document with sorted keys and no whitespace.
// Invalid input yields "".
func canonicalJSON(raw string) string {
	if raw == "" {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return ""
	}
	out, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(out)
}

// detectPolicyType maps a bucket policy document onto one of the canned
// presets. Anything that is not an exact preset is custom.
func detectPolicyType(policyJSON, bucketName string) string {
	if policyJSON == "" {
		return PolicyPrivate
	}
	canonical := canonicalJSON(policyJSON)
	if canonical == "" {
		return PolicyCustom
	}
	switch canonical {
	case canonicalJSON(presetPolicy(bucketName, "s3:GetObject")):
		return PolicyPublicRead
	case canonicalJSON(presetPolicy(bucketName, "s3:GetObject", "s3:PutObject", "s3:DeleteObject")):
		return PolicyPublicReadWrite
	}
	return PolicyCustom
}

// allowsAnonymousRead reports whether objects can be fetched without a signature
func allowsAnonymousRead(policyType string) bool {
	return policyType == PolicyPublicRead || policyType == PolicyPublicReadWrite
}

// grantsAnonymousRead evaluates a custom policy with minio-go's policy
// package. Only read-only and read-write grants on the whole bucket count;
// anything narrower keeps signed URLs.
func grantsAnonymousRead(policyJSON, bucketName string) bool {
	var doc policy.BucketAccessPolicy
	if err := json.Unmarshal([]byte(policyJSON), &doc); err != nil {
		return false
	}
	switch policy.GetPolicy(doc.Statements, bucketName, "") {
	case policy.BucketPolicyReadOnly, policy.BucketPolicyReadWrite:
		return true
	}
	return false
}
