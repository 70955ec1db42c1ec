// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.
package main

import (
	"fmt"
	"strings"
	"testing"
)

func TestRedactedOptions(t *testing.T) {
	var o options
	o.Store.Type = "s3"
	o.Store.S3.Bucket = "shares"
	o.Store.S3.AccessKey = "AKIAEXAMPLEKEY"
	o.Store.S3.SecretKey = "wJalrXUtnFEMIsecretvalue"
	o.Store.SQL.Connection = "postgres://share:hunter2@db:5432/share"

	out := fmt.Sprintf("%+v", redacted(o))
	for _, secret := range []string{"AKIAEXAMPLEKEY", "wJalrXUtnFEMIsecretvalue", "hunter2"} {
		if strings.Contains(out, secret) {
			t.Errorf("expected %q to be masked, got [%s]", secret, out)
		}
	}
	if !strings.Contains(out, "shares") {
		t.Errorf("expected non-secret fields to be kept, got [%s]", out)
	}
	if o.Store.S3.SecretKey != "wJalrXUtnFEMIsecretvalue" {
		t.Errorf("expected the original options to be unchanged, got [%s]", o.Store.S3.SecretKey)
	}
}

func TestRedactedOptionsEmpty(t *testing.T) {
	var o options
	r := redacted(o)
	if r.Store.S3.SecretKey != "" || r.Store.SQL.Connection != "" {
		t.Errorf("expected empty values to stay empty, got [%+v]", r.Store)
	}
}
