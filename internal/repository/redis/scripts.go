package redisrepo

import "github.com/redis/go-redis/v9"

// snapshotFn reads the counters of the event hash passed as KEYS[2].
const snapshotFn = `
local function snapshot(code)
	local v = redis.call('HMGET', KEYS[2], 'available', 'sold', 'capacity', 'seq', 'updated_at')
	return {code, tonumber(v[1]), tonumber(v[2]), tonumber(v[3]), tonumber(v[4]), tonumber(v[5])}
end

local function free(to, now, id)
	redis.call('HSET', KEYS[1], 'state', to, 'released_at', now)
	redis.call('ZREM', KEYS[3], id)
	redis.call('HINCRBY', KEYS[2], 'available', 1)
	redis.call('HINCRBY', KEYS[2], 'seq', 1)
	redis.call('HSET', KEYS[2], 'updated_at', now)
end
`

// KEYS: event, events set. ARGV: id, data, capacity, now.
var saveEventScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('HSET', KEYS[1], 'data', ARGV[2])
	return 1
end
redis.call('HSET', KEYS[1],
	'data', ARGV[2],
	'capacity', ARGV[3],
	'available', ARGV[3],
	'sold', 0,
	'seq', 0,
	'updated_at', ARGV[4])
redis.call('SADD', KEYS[2], ARGV[1])
return 0
`)

// KEYS: reservation, event, expiry index. ARGV: id, event id, expires at, data, now.
var reserveScript = redis.NewScript(snapshotFn + `
if redis.call('EXISTS', KEYS[2]) == 0 then
	return {-1}
end
if redis.call('EXISTS', KEYS[1]) == 1 then
	return {-3}
end
if tonumber(redis.call('HGET', KEYS[2], 'available')) <= 0 then
	return snapshot(-2)
end
redis.call('HINCRBY', KEYS[2], 'available', -1)
redis.call('HINCRBY', KEYS[2], 'seq', 1)
redis.call('HSET', KEYS[2], 'updated_at', ARGV[5])
redis.call('HSET', KEYS[1],
	'event_id', ARGV[2],
	'state', 'held',
	'expires_at', ARGV[3],
	'data', ARGV[4])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return snapshot(0)
`)

// KEYS: reservation, event, expiry index. ARGV: id, target state, now, only if expired.
var freeScript = redis.NewScript(snapshotFn + `
local state = redis.call('HGET', KEYS[1], 'state')
if not state then
	return {-1}
end
if state ~= 'held' then
	return snapshot(1)
end
if ARGV[4] == '1' and tonumber(redis.call('HGET', KEYS[1], 'expires_at')) > tonumber(ARGV[3]) then
	return snapshot(1)
end
free(ARGV[2], ARGV[3], ARGV[1])
return snapshot(0)
`)

// KEYS: reservation, event, expiry index. ARGV: id, tx ref, now.
var confirmScript = redis.NewScript(snapshotFn + `
local state = redis.call('HGET', KEYS[1], 'state')
if not state then
	return {-1}
end
if state ~= 'held' then
	return snapshot(-4)
end
if tonumber(redis.call('HGET', KEYS[1], 'expires_at')) <= tonumber(ARGV[3]) then
	free('expired', ARGV[3], ARGV[1])
	return snapshot(-5)
end
redis.call('HSET', KEYS[1], 'state', 'confirmed', 'tx_ref', ARGV[2], 'confirmed_at', ARGV[3])
redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('HINCRBY', KEYS[2], 'sold', 1)
redis.call('HINCRBY', KEYS[2], 'seq', 1)
redis.call('HSET', KEYS[2], 'updated_at', ARGV[3])
return snapshot(0)
`)
