/*
Package secure_channel implements the enclave side of a secure
channel between an untrusted host process and code running inside a
trusted execution environment.

The most typical way to interact with this code base is through the
SessionManager interface. The SessionManager keeps a Registry of
sessions keyed by a random session id. Each session owns an
ExchangeContext holding its ephemeral key agreement material. After
the host and the enclave exchanged their exchange parameters, both
sides derive the same session key, and the SessionManager encrypts or
decrypts messages for the session.

Sessions are purely in memory. A session that sees no traffic for
more than a fixed number of sweeps is destroyed; RunSweeper drives
the sweeps.

You can configure the session manager using a JSON or YAML
configuration file, with overrides from the environment.
*/
package secure_channel
