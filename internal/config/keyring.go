/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import "github.com/zalando/go-keyring"

// Keyring service and entry holding the history database password.
const (
	keyringService    = "PicViewer"
	keyringDBPassword = "history_db_password"
)

// SecretStore abstracts the OS keyring so tests can substitute an in-memory store.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var secretStore SecretStore = osKeyring{}

// osKeyring is backed by the platform keychain (Secret Service, macOS Keychain,
// Windows Credential Manager).
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ForgetDBPassword removes the stored history database password.
func ForgetDBPassword() error {
	err := secretStore.Delete(keyringService, keyringDBPassword)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
