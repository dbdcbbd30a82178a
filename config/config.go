/*
 * ledgergraph
 *
 * Package config holds the handful of package-level settings this
 * system needs at startup, in the same shape as the teacher's
 * config package (string-keyed `DefaultConfig`/`Config` maps plus
 * `Str`/`Int`/`Bool` accessors).
 */
package config

import (
	"fmt"
	"strconv"

	"github.com/krotik/common/errorutil"
)

/*
Known configuration options for ledgergraph.
*/
const (
	GenesisDifficulty      = "GenesisDifficulty"
	NodeIDLength           = "NodeIDLength"
	MaxBootstrapValidators = "MaxBootstrapValidators"
)

/*
DefaultConfig is the default configuration.
*/
var DefaultConfig = map[string]interface{}{
	// GenesisDifficulty is the "1 edge more" baseline the genesis block is
	// treated as carrying (§3, §9): -1, so the first real validator block
	// is always exempt from the rule.
	GenesisDifficulty: -1,

	// NodeIDLength is the character length of a generated node id, drawn
	// from idgen's alphanumeric alphabet (component A).
	NodeIDLength: 21,

	// MaxBootstrapValidators is the maximum count of username<k>/key<k>
	// startup flag pairs accepted, k in {1..4} (§6 "Startup flags").
	MaxBootstrapValidators: 4,
}

/*
Config is the actual configuration in effect for this process.
*/
var Config map[string]interface{}

/*
LoadDefaultConfig resets Config to a fresh copy of DefaultConfig.
*/
func LoadDefaultConfig() {
	data := make(map[string]interface{}, len(DefaultConfig))
	for k, v := range DefaultConfig {
		data[k] = v
	}
	Config = data
}

/*
Str reads a config value as a string value.
*/
func Str(key string) string {
	return fmt.Sprint(Config[key])
}

/*
Int reads a config value as an int value.
*/
func Int(key string) int64 {
	ret, err := strconv.ParseInt(fmt.Sprint(Config[key]), 10, 64)

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

/*
Bool reads a config value as a boolean value.
*/
func Bool(key string) bool {
	ret, err := strconv.ParseBool(fmt.Sprint(Config[key]))

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("Could not parse config key %v: %v", key, err))

	return ret
}

func init() {
	LoadDefaultConfig()
}
